// Package pool dispatches batches of independent tasks across a fixed
// set of exclusive compute devices, each hosting expensive, reusable
// per-device state created by a user initializer.
//
// The primary type is Pool, built with New and a device count. Two
// execution strategies sit behind the same Execute surface:
//
//   - StrategyShared: a bounded goroutine group shares one context per
//     device, serialized by per-device exclusive locks. Fastest when
//     contexts are cheap to share.
//   - StrategyIsolated: one resident worker per device with a private
//     context, fed through a bounded per-device queue. A misbehaving
//     task cannot corrupt another device's state.
//
// # Basic Usage
//
//	p, err := pool.New(4,
//	    pool.WithStrategy(pool.StrategyShared),
//	    pool.WithInitializer(loadModel),
//	)
//	if err != nil {
//	    // invalid configuration
//	}
//	defer p.Shutdown()
//
//	tasks := []pool.Task{pool.Value(1), pool.Value(2), pool.Value(3)}
//	outcomes, err := p.Execute(ctx, work, tasks)
//
// Work functions receive an Invocation carrying the task's arguments
// plus the assigned device id and, if an initializer was supplied, the
// device context:
//
//	func work(ctx context.Context, inv pool.Invocation) (any, error) {
//	    model := inv.Context.(*Model)
//	    return model.Run(inv.Args[0])
//	}
//
// # Tasks and Ordering
//
// Tasks are built explicitly — Positional, Named, Mixed, or Value — so
// there is no payload shape inspection at run time. Devices are
// assigned round-robin over the submission order: task i always lands
// on device i mod deviceCount, deterministically. Outcomes complete in
// any order and are restored to submission order before Execute
// returns.
//
// # Failure Model
//
// Every submitted task yields exactly one Outcome. A failing work
// function, a panicking task, or a device whose initializer failed all
// become failed Outcomes; sibling tasks keep running and Execute never
// returns an error for them. Under the isolated strategy a failed
// initializer additionally yields one synthetic Outcome with task id
// INIT_FAILED, and that device's worker produces nothing further.
//
// # Lifecycle
//
// Start is needed only for the isolated strategy and is implied by the
// first Execute. Shutdown is idempotent and safe without a prior
// Start. Scope bounds the whole lifecycle:
//
//	err := p.Scope(func(p *pool.Pool) error {
//	    _, err := p.Execute(ctx, work, tasks)
//	    return err
//	})
//
// For one-shot batches, Map constructs, executes, and shuts down in a
// single call.
//
// # Configuration Options
//
//   - WithStrategy(s): select the execution model (default shared)
//   - WithInitializer(fn) / WithReleaser(fn): context lifecycle
//   - WithMaintenance(fn): periodic per-device housekeeping
//   - WithRetryPolicy(maxAttempts, initialDelay): retry failed tasks
//     with exponential backoff
//   - WithRateLimit(tasksPerSecond, burst): throttle task admission
//   - WithVerbose(v) / WithLogger(l) / WithProgress(fn): reporting
package pool
