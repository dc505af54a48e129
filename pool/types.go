package pool

import (
	"context"
	"time"
)

// Strategy selects the execution model used by a Pool.
type Strategy int

const (
	// StrategyShared runs tasks on a bounded group of goroutines that
	// share one context per device, serialized by per-device locks.
	// Fast: each context is initialized once and reused by every task.
	StrategyShared Strategy = iota

	// StrategyIsolated runs one resident worker per device, each owning
	// a private context that never leaves the worker. Robust: a
	// misbehaving task cannot corrupt another device's state.
	StrategyIsolated
)

// String returns the strategy name used in logs and reports.
func (s Strategy) String() string {
	switch s {
	case StrategyShared:
		return "shared"
	case StrategyIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// InitFailedTaskID is the task id of the synthetic Outcome emitted when a
// device worker's initializer fails under the isolated strategy.
const InitFailedTaskID = "INIT_FAILED"

// Invocation carries everything a work function needs for one task:
// the task's own arguments plus the device id and device context
// injected by the pool.
type Invocation struct {
	// DeviceID is the device the task was assigned to.
	DeviceID int

	// Context is the device context produced by the initializer, or nil
	// when the pool was built without one. Under the isolated strategy
	// the value is private to the worker; work functions must not
	// retain it past their own invocation.
	Context any

	// Args holds the task's positional arguments.
	Args []any

	// Kwargs holds the task's named arguments. Never nil.
	Kwargs map[string]any
}

// WorkFunc is the user function executed once per task. It must not
// assume which strategy invoked it.
type WorkFunc func(ctx context.Context, inv Invocation) (any, error)

// Initializer builds the expensive per-device context. It is invoked
// exactly once per device: at first Execute under the shared strategy,
// at worker startup under the isolated strategy. The pool never retries
// a failed initializer.
type Initializer func(ctx context.Context, deviceID int) (any, error)

// Releaser tears down a device context on shutdown. Release is
// best-effort: errors and panics are swallowed, never surfaced to the
// caller.
type Releaser func(deviceID int, devCtx any)

// MaintenanceFunc is an optional per-device housekeeping hook, run
// after every few completed tasks and once at worker exit under the
// isolated strategy. Failures are non-fatal.
type MaintenanceFunc func(deviceID int, devCtx any)

// ProgressFunc observes task completion. The pool calls it once per
// finished task with the producing device, the task id, the task's
// elapsed time, and whether it succeeded. Rendering is the observer's
// business.
type ProgressFunc func(deviceID int, taskID string, elapsed time.Duration, success bool)

// Outcome is the result record for exactly one task.
type Outcome struct {
	// Index is the task's position in the submitted batch. Synthetic
	// outcomes (initializer failures) carry Index -1.
	Index int

	// TaskID identifies the task; defaults to the decimal Index.
	TaskID string

	// DeviceID is the device that produced the outcome, or -1 when no
	// device ever ran the task.
	DeviceID int

	// Value is the work function's return value; only meaningful when
	// Err is nil.
	Value any

	// Err is the failure cause, nil on success.
	Err error

	// Duration is the wall time spent inside the work function.
	Duration time.Duration
}

// Success reports whether the task completed without error.
func (o Outcome) Success() bool {
	return o.Err == nil
}
