package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/utkarsh5026/devicepool/internal/backoff"
)

var (
	// ErrUnknownStrategy is returned by New for a strategy value that
	// names neither execution model.
	ErrUnknownStrategy = errors.New("strategy must be shared or isolated")

	// ErrDeviceCount is returned by New when the device count is not
	// positive.
	ErrDeviceCount = errors.New("device count must be positive")

	// ErrTaskIDMismatch is returned by Execute when explicit task ids
	// do not match the batch length.
	ErrTaskIDMismatch = errors.New("task id count does not match task count")

	// ErrNilWorkFunc is returned by Execute for a nil work function.
	ErrNilWorkFunc = errors.New("work function is nil")

	// ErrShutdownTimeout is logged when an isolated worker does not
	// exit within the join timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)

// runTask executes the work function for one prepared task and converts
// whatever happens — value, error, or panic — into a complete Outcome.
// Failures never escape this boundary.
func (cfg *config) runTask(ctx context.Context, p prepared, devCtx any, fn WorkFunc) Outcome {
	start := time.Now()
	value, err := cfg.attempt(ctx, p.invocation(devCtx), fn)

	out := Outcome{
		Index:    p.index,
		TaskID:   p.id,
		DeviceID: p.deviceID,
		Duration: time.Since(start),
	}
	if err != nil {
		out.Err = err
	} else {
		out.Value = value
	}
	return out
}

// attempt runs the work function with rate limiting, panic recovery,
// and the configured retry policy. A panic is converted to an error
// with its stack trace and ends the attempt sequence.
func (cfg *config) attempt(ctx context.Context, inv Invocation, fn WorkFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("task panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	delays := backoff.Exponential{Initial: cfg.retryDelay, Max: 5 * time.Second}
	maxAttempts := max(cfg.maxAttempts, 1)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 && cfg.retryDelay > 0 {
			select {
			case <-time.After(delays.Delay(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if cfg.limiter != nil {
			if err := cfg.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		value, err = fn(ctx, inv)
		if err == nil {
			return value, nil
		}
	}

	return value, err
}

// waitUntil blocks until the done channel is closed or the timeout is
// reached. Used during shutdown to bound how long a worker is waited on.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	select {
	case <-d:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
