package db

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type flakyPinger struct {
	failures int32
	calls    atomic.Int32
}

func (p *flakyPinger) Ping(_ context.Context) error {
	if p.calls.Add(1) <= p.failures {
		return errors.New("not yet")
	}
	return nil
}

func TestWaitForReady_EventuallyReady(t *testing.T) {
	p := &flakyPinger{failures: 2}
	if err := WaitForReady(context.Background(), p, 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls.Load() != 3 {
		t.Errorf("expected 3 pings, got %d", p.calls.Load())
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	p := &flakyPinger{failures: 1 << 30}
	err := WaitForReady(context.Background(), p, 150*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{Op: OpGet, Err: ErrKeyNotFound}
	if !errors.Is(err, ErrKeyNotFound) {
		t.Error("expected errors.Is to see the wrapped error")
	}
	if err.Error() != "GET: db: key not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}
