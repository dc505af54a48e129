package pool

import (
	"fmt"
	"strconv"
)

// Task is one independent unit of work: a payload of positional and
// named arguments handed to the work function. Construct tasks with
// Positional, Named, Mixed, or Value — there is no payload shape
// sniffing at execution time.
type Task struct {
	args   []any
	kwargs map[string]any
}

// Positional builds a task whose payload is positional arguments only.
func Positional(args ...any) Task {
	return Task{args: args}
}

// Named builds a task whose payload is named arguments only.
func Named(kwargs map[string]any) Task {
	return Task{kwargs: kwargs}
}

// Mixed builds a task carrying both positional and named arguments.
func Mixed(args []any, kwargs map[string]any) Task {
	return Task{args: args, kwargs: kwargs}
}

// Value builds a task whose payload is a single bare value, passed as
// the sole positional argument.
func Value(v any) Task {
	return Task{args: []any{v}}
}

// Args returns the task's positional arguments.
func (t Task) Args() []any { return t.args }

// Kwargs returns the task's named arguments, or nil.
func (t Task) Kwargs() map[string]any { return t.kwargs }

// prepared is a task after partitioning: normalized payload, resolved
// id, and its assigned device.
type prepared struct {
	index    int
	id       string
	deviceID int
	task     Task
}

// prepare assigns every task a device via round-robin over the
// submission order and resolves task ids. The assignment is a pure
// function of position: task i always lands on device i mod
// deviceCount, so resubmitting the same ordered batch reproduces the
// same task-to-device mapping.
func prepare(tasks []Task, ids []string, deviceCount int) ([]prepared, error) {
	if ids != nil && len(ids) != len(tasks) {
		return nil, fmt.Errorf("%w: %d ids for %d tasks", ErrTaskIDMismatch, len(ids), len(tasks))
	}

	batch := make([]prepared, len(tasks))
	for i, t := range tasks {
		id := strconv.Itoa(i)
		if ids != nil {
			id = ids[i]
		}
		batch[i] = prepared{
			index:    i,
			id:       id,
			deviceID: i % deviceCount,
			task:     t,
		}
	}
	return batch, nil
}

// invocation builds the augmented call for a prepared task: the task's
// own arguments plus the injected device id and context.
func (p prepared) invocation(devCtx any) Invocation {
	kwargs := p.task.kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return Invocation{
		DeviceID: p.deviceID,
		Context:  devCtx,
		Args:     p.task.args,
		Kwargs:   kwargs,
	}
}
