package pool

import (
	"context"
	"testing"
)

// strategyCase defines a test configuration for one execution strategy.
type strategyCase struct {
	name string
	opts []Option
}

// bothStrategies returns the two strategies with extra options applied,
// so behavior shared by the engines is asserted once and run twice.
func bothStrategies(extra ...Option) []strategyCase {
	return []strategyCase{
		{
			name: "Shared",
			opts: append([]Option{WithStrategy(StrategyShared)}, extra...),
		},
		{
			name: "Isolated",
			opts: append([]Option{WithStrategy(StrategyIsolated)}, extra...),
		},
	}
}

func runStrategyTest(t *testing.T, testFunc func(t *testing.T, sc strategyCase), extra ...Option) {
	for _, sc := range bothStrategies(extra...) {
		t.Run(sc.name, func(t *testing.T) {
			testFunc(t, sc)
		})
	}
}

// squareWork multiplies the single positional argument by itself.
func squareWork(_ context.Context, inv Invocation) (any, error) {
	n := inv.Args[0].(int)
	return n * n, nil
}

// intTasks builds Value tasks from the given ints.
func intTasks(ns ...int) []Task {
	tasks := make([]Task, len(ns))
	for i, n := range ns {
		tasks[i] = Value(n)
	}
	return tasks
}

// mustPool builds a pool or fails the test.
func mustPool(t *testing.T, devices int, opts ...Option) *Pool {
	t.Helper()
	p, err := New(devices, opts...)
	if err != nil {
		t.Fatalf("unexpected error creating pool: %v", err)
	}
	return p
}
