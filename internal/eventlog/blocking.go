package eventlog

import (
	"context"
	"time"
)

// AppendNotify returns a channel that is closed by the next successful append.
// Take it before reading so an append racing with the read is not missed.
func (l *Log) AppendNotify() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notifyCh
}

// WaitForAppend blocks until either a new append occurs or timeout elapses.
// It returns true if woken by an append, false on timeout.
func (l *Log) WaitForAppend(timeout time.Duration) bool {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return l.WaitForAppendContext(ctx) == nil
}

// WaitForAppendContext blocks until a new append occurs or ctx is done.
func (l *Log) WaitForAppendContext(ctx context.Context) error {
	select {
	case <-l.AppendNotify():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
