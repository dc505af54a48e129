package pool

import "context"

// engine is the contract both execution strategies implement. The pool
// facade picks one at construction and never inspects which.
//
// The calling convention for a batch is submit then collect: submit
// returns promptly (feeding continues in the background, subject to
// backpressure), collect blocks until one Outcome per submitted task
// has been read.
type engine interface {
	// start brings workers up. Idempotent; a no-op for the shared
	// strategy.
	start()

	// submit enqueues a prepared batch for execution.
	submit(ctx context.Context, fn WorkFunc, batch []prepared)

	// collect reads outcomes until every one of the expect submitted
	// tasks is accounted for. Synthetic initialization-failure outcomes
	// are returned in addition to the expected count. The returned
	// slice is in completion order.
	collect(ctx context.Context, expect int, observe ProgressFunc) []Outcome

	// shutdown reclaims workers and device contexts. Idempotent, safe
	// when never started.
	shutdown()
}
