package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"credkeys/cmd/credkeys/commands"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.Execute(ctx, commands.BuildInfo{Version: version, Commit: commit, BuildDate: buildDate})
	stop()
	if err != nil {
		os.Exit(1)
	}
}
