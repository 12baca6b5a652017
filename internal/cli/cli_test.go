package cli

import (
	"syscall"
	"testing"
	"time"
)

func TestNewContextCancelsOnInterrupt(t *testing.T) {
	InitSession()
	ctx := NewContext()
	if err := ctx.Err(); err != nil {
		t.Fatalf("fresh context already done: %v", err)
	}
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("failed to send SIGINT: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("root context not cancelled on SIGINT")
	}
	// Later invocations start from a fresh signal context.
	InitSession()
	if err := NewContext().Err(); err != nil {
		t.Fatalf("re-initialized context already done: %v", err)
	}
}
