package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// sharedEngine maximizes throughput when device contexts are cheap to
// share: a bounded group of workers pulls tasks from one channel, and a
// task takes its assigned device's exclusive lock before running.
// Tasks on the same device serialize; tasks on different devices run in
// parallel.
type sharedEngine struct {
	cfg         *config
	deviceCount int
	store       *contextStore

	// results is the outbound channel of the in-flight batch. Execute
	// is serialized by the pool, so one batch owns it at a time.
	results chan Outcome
}

func newSharedEngine(deviceCount int, cfg *config) *sharedEngine {
	return &sharedEngine{
		cfg:         cfg,
		deviceCount: deviceCount,
		store:       newContextStore(deviceCount, cfg),
	}
}

// start is a no-op: shared contexts load lazily on first submit.
func (e *sharedEngine) start() {}

// submit loads the device contexts if this is the first batch, then
// launches the worker group and the feeder. It returns once the batch
// is flowing; collect reads the outcomes.
func (e *sharedEngine) submit(ctx context.Context, fn WorkFunc, batch []prepared) {
	e.store.ensure(ctx)
	e.results = make(chan Outcome, len(batch))

	taskCh := make(chan prepared)
	workers := min(e.deviceCount, len(batch))

	results := e.results
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return e.worker(ctx, fn, taskCh, results)
		})
	}

	go func() {
		for _, p := range batch {
			taskCh <- p
		}
		close(taskCh)
	}()

	go func() {
		_ = g.Wait()
		close(results)
	}()
}

// worker drains the task channel. Every task it takes produces exactly
// one Outcome: a poisoned device or a cancelled context becomes a
// failed Outcome rather than a dropped task, so sibling tasks are never
// affected and the batch count always balances.
func (e *sharedEngine) worker(ctx context.Context, fn WorkFunc, taskCh <-chan prepared, results chan<- Outcome) error {
	// One-time barrier: no task runs before context loading finished.
	if err := e.store.await(ctx); err != nil {
		for p := range taskCh {
			results <- Outcome{Index: p.index, TaskID: p.id, DeviceID: p.deviceID, Err: err}
		}
		return err
	}

	for p := range taskCh {
		if err := ctx.Err(); err != nil {
			results <- Outcome{Index: p.index, TaskID: p.id, DeviceID: p.deviceID, Err: err}
			continue
		}

		devCtx, unlock, poisoned := e.store.acquire(p.deviceID)
		if poisoned != nil {
			unlock()
			results <- Outcome{Index: p.index, TaskID: p.id, DeviceID: p.deviceID, Err: poisoned}
			continue
		}

		out := e.cfg.runTask(ctx, p, devCtx, fn)
		unlock()
		results <- out
	}
	return nil
}

// collect reads exactly expect outcomes in completion order.
func (e *sharedEngine) collect(_ context.Context, expect int, observe ProgressFunc) []Outcome {
	outs := make([]Outcome, 0, expect)
	for out := range e.results {
		outs = append(outs, out)
		if observe != nil {
			observe(out.DeviceID, out.TaskID, out.Duration, out.Success())
		}
		if len(outs) == expect {
			break
		}
	}
	return outs
}

// shutdown releases the shared contexts. A later submit reloads them.
func (e *sharedEngine) shutdown() {
	e.store.release()
}
