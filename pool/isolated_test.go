package pool

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsolatedEngine_InitFailureEmitsSentinel(t *testing.T) {
	initErr := errors.New("no such device")
	p := mustPool(t, 2,
		WithStrategy(StrategyIsolated),
		WithInitializer(func(_ context.Context, deviceID int) (any, error) {
			if deviceID == 1 {
				return nil, initErr
			}
			return "ok", nil
		}),
	)
	defer p.Shutdown()

	outs, err := p.Execute(context.Background(), squareWork, intTasks(1, 2, 3, 4, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 5 task outcomes plus the one synthetic INIT_FAILED record.
	if len(outs) != 6 {
		t.Fatalf("expected 6 outcomes, got %d", len(outs))
	}

	var sentinels int
	for _, out := range outs {
		if out.TaskID == InitFailedTaskID {
			sentinels++
			if out.DeviceID != 1 {
				t.Errorf("expected sentinel for device 1, got device %d", out.DeviceID)
			}
			if out.Index != -1 {
				t.Errorf("expected sentinel index -1, got %d", out.Index)
			}
			continue
		}
		// No real outcome may report the silenced device.
		if out.DeviceID == 1 {
			t.Errorf("task %s reports silenced device 1", out.TaskID)
		}
	}
	if sentinels != 1 {
		t.Fatalf("expected exactly one INIT_FAILED outcome, got %d", sentinels)
	}

	// Tasks that were assigned to the dead device fail with the cause.
	var stranded int
	for _, out := range outs {
		if out.TaskID != InitFailedTaskID && !out.Success() {
			stranded++
			if !errors.Is(out.Err, initErr) {
				t.Errorf("task %s: expected init cause in error, got %v", out.TaskID, out.Err)
			}
			if !strings.Contains(out.Err.Error(), "unavailable") {
				t.Errorf("task %s: expected unavailable error, got %v", out.TaskID, out.Err)
			}
		}
	}
	if stranded != 2 {
		t.Errorf("expected 2 stranded tasks (indices 1 and 3), got %d", stranded)
	}
}

func TestIsolatedEngine_InitFailureSilencesAcrossBatches(t *testing.T) {
	p := mustPool(t, 2,
		WithStrategy(StrategyIsolated),
		WithInitializer(func(_ context.Context, deviceID int) (any, error) {
			if deviceID == 0 {
				return nil, errors.New("dead on arrival")
			}
			return "ok", nil
		}),
	)
	defer p.Shutdown()

	first, err := p.Execute(context.Background(), squareWork, intTasks(1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := p.Execute(context.Background(), squareWork, intTasks(3, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sentinels := 0
	for _, out := range append(first, second...) {
		if out.TaskID == InitFailedTaskID {
			sentinels++
		}
	}
	if sentinels != 1 {
		t.Errorf("expected the sentinel exactly once for the pool's lifetime, got %d", sentinels)
	}

	// The second batch still accounts for every task.
	if len(second) != 2 {
		t.Errorf("expected 2 outcomes in second batch, got %d", len(second))
	}
}

func TestIsolatedEngine_Backpressure(t *testing.T) {
	// One device means a queue depth of 2; a batch of 12 slow tasks
	// forces the feeder to block repeatedly. The batch must still
	// complete with every outcome present.
	p := mustPool(t, 1, WithStrategy(StrategyIsolated))
	defer p.Shutdown()

	fn := func(_ context.Context, inv Invocation) (any, error) {
		time.Sleep(3 * time.Millisecond)
		return inv.Args[0], nil
	}

	tasks := intTasks(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)
	done := make(chan struct{})
	var outs []Outcome
	var err error
	go func() {
		defer close(done)
		outs, err = p.Execute(context.Background(), fn, tasks)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("execute deadlocked under backpressure")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outs) != len(tasks) {
		t.Fatalf("expected %d outcomes, got %d", len(tasks), len(outs))
	}
}

func TestIsolatedEngine_ShutdownIdempotent(t *testing.T) {
	p := mustPool(t, 2, WithStrategy(StrategyIsolated))

	// Never started: must be a no-op.
	p.Shutdown()

	p.Start()
	p.Start() // idempotent
	p.Shutdown()
	p.Shutdown()
}

func TestIsolatedEngine_RestartAfterShutdown(t *testing.T) {
	p := mustPool(t, 2, WithStrategy(StrategyIsolated))

	outs, err := p.Execute(context.Background(), squareWork, intTasks(1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outs))
	}

	p.Shutdown()

	// A fresh Execute lazily restarts the workers.
	outs, err = p.Execute(context.Background(), squareWork, intTasks(3, 4))
	if err != nil {
		t.Fatalf("unexpected error after restart: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("expected 2 outcomes after restart, got %d", len(outs))
	}
	p.Shutdown()
}

func TestIsolatedEngine_ScopeAlwaysShutsDown(t *testing.T) {
	var released atomic.Int32
	p := mustPool(t, 1,
		WithStrategy(StrategyIsolated),
		WithInitializer(func(_ context.Context, _ int) (any, error) { return "ctx", nil }),
		WithReleaser(func(_ int, _ any) { released.Add(1) }),
	)

	failure := errors.New("scope body failed")
	err := p.Scope(func(p *Pool) error {
		if _, err := p.Execute(context.Background(), squareWork, intTasks(1)); err != nil {
			return err
		}
		return failure
	})

	if !errors.Is(err, failure) {
		t.Fatalf("expected scope body error, got %v", err)
	}
	if released.Load() != 1 {
		t.Error("expected worker context released despite error exit")
	}
}

func TestIsolatedEngine_MaintenancePasses(t *testing.T) {
	var passes atomic.Int32
	p := mustPool(t, 1,
		WithStrategy(StrategyIsolated),
		WithMaintenance(func(_ int, _ any) {
			passes.Add(1)
		}),
	)

	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Value(i)
	}
	if _, err := p.Execute(context.Background(), squareWork, tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Shutdown()

	// Every 10 completed tasks, plus the final pass at worker exit.
	if got := passes.Load(); got != 3 {
		t.Errorf("expected 3 maintenance passes, got %d", got)
	}
}

func TestIsolatedEngine_MaintenancePanicNonFatal(t *testing.T) {
	p := mustPool(t, 1,
		WithStrategy(StrategyIsolated),
		WithMaintenance(func(_ int, _ any) {
			panic("maintenance blew up")
		}),
	)
	defer p.Shutdown()

	tasks := make([]Task, 15)
	for i := range tasks {
		tasks[i] = Value(i)
	}

	outs, err := p.Execute(context.Background(), squareWork, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, out := range outs {
		if !out.Success() {
			t.Errorf("task %s failed after maintenance panic: %v", out.TaskID, out.Err)
		}
	}
}
