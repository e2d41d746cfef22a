package ratelimiter

import (
	"fmt"
	"testing"
	"time"
)

func TestNewRejectsInvalidArgs(t *testing.T) {
	if New(0, 1, 0) != nil || New(1, 0, 0) != nil {
		t.Fatal("expected nil limiter for non-positive rate or burst")
	}
	var l *MapLimiter
	if !l.Allow("k", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
}

func TestTakeEnforcesBurstPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("burst of two must be allowed")
	}
	ok, wait := l.Take("a", now)
	if ok {
		t.Fatal("third call within burst window must be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Fatalf("unexpected wait: %s", wait)
	}
	if !l.Allow("b", now) {
		t.Fatal("other keys have their own bucket")
	}
	if !l.Allow("a", now.Add(wait)) {
		t.Fatal("token must be available after the reported wait")
	}
}

func TestEmptyKeyIsNotLimited(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()
	for i := 0; i < 5; i++ {
		if !l.Allow("", now) {
			t.Fatal("empty key must not be limited")
		}
	}
}

func TestIdleBucketsAreEvicted(t *testing.T) {
	l := New(10, 1, time.Second)
	start := time.Unix(1_700_000_000, 0)
	l.Allow("stale", start)
	later := start.Add(time.Hour)
	for i := 0; i < sweepEvery; i++ {
		l.Allow(fmt.Sprintf("k%d", i%4), later)
	}
	if l.Len() != 4 {
		t.Fatalf("expected stale bucket evicted, have %d keys", l.Len())
	}
}
