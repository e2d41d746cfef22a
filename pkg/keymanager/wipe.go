package keymanager

import "runtime"

func zeroBytes(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
