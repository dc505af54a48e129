package pool

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Pool distributes batches of independent tasks across a fixed set of
// exclusive compute devices, round-robin. One of two engines does the
// work, selected at construction: StrategyShared for speed,
// StrategyIsolated for fault isolation. Either way the surface is the
// same — Execute a batch, get one Outcome per task back in submission
// order.
//
// Batches are serialized: concurrent Execute calls queue behind each
// other rather than interleave.
type Pool struct {
	cfg         *config
	deviceCount int
	eng         engine

	mu sync.Mutex
}

// New builds a pool driving deviceCount devices. An unknown strategy or
// a non-positive device count is a construction error; nothing is
// partially created.
func New(deviceCount int, opts ...Option) (*Pool, error) {
	if deviceCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrDeviceCount, deviceCount)
	}

	cfg := newConfig(opts...)

	var eng engine
	switch cfg.strategy {
	case StrategyShared:
		eng = newSharedEngine(deviceCount, cfg)
	case StrategyIsolated:
		eng = newIsolatedEngine(deviceCount, cfg)
	default:
		return nil, fmt.Errorf("%w: got %d", ErrUnknownStrategy, int(cfg.strategy))
	}

	cfg.logger.WithFields(logrus.Fields{
		"devices":  deviceCount,
		"strategy": cfg.strategy.String(),
	}).Info("pool created")

	return &Pool{cfg: cfg, deviceCount: deviceCount, eng: eng}, nil
}

// DeviceCount returns the number of devices the pool drives.
func (p *Pool) DeviceCount() int { return p.deviceCount }

// Strategy returns the configured execution strategy.
func (p *Pool) Strategy() Strategy { return p.cfg.strategy }

// Execute runs fn once per task across the pool's devices and returns
// one Outcome per task, restored to submission order. Task and device
// failures are reported inside the Outcomes and never abort the batch;
// only misuse (nil fn, mismatched task ids) returns an error. An empty
// batch returns immediately without touching the engine.
func (p *Pool) Execute(ctx context.Context, fn WorkFunc, tasks []Task, opts ...ExecOption) ([]Outcome, error) {
	if fn == nil {
		return nil, ErrNilWorkFunc
	}
	if len(tasks) == 0 {
		return []Outcome{}, nil
	}

	ec := &execConfig{description: "Processing"}
	for _, opt := range opts {
		opt(ec)
	}

	batch, err := prepare(tasks, ec.taskIDs, p.deviceCount)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	observe := p.cfg.progress
	var bar *progressbar.ProgressBar
	if observe == nil && p.cfg.verbose {
		bar = newProgressBar(len(batch), ec.description)
		observe = barObserver(bar, ec.description)
	}

	p.eng.submit(ctx, fn, batch)
	outs := p.eng.collect(ctx, len(batch), observe)

	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	ordered, stats := Aggregate(outs)
	stats.Strategy = p.cfg.strategy
	if p.cfg.verbose {
		stats.Render(os.Stderr)
	}
	return ordered, nil
}

// Start brings the isolated workers up ahead of the first batch.
// Idempotent; a no-op for the shared strategy, which loads its contexts
// lazily on first Execute.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eng.start()
}

// Shutdown reclaims workers and releases device contexts. Idempotent
// and safe to call without a prior Start. Under the isolated strategy,
// in-flight tasks are not interrupted; workers still busy after the
// join timeout are abandoned.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eng.shutdown()
}

// Scope starts the pool, runs fn, and always shuts down afterwards —
// even when fn fails — so no workers outlive the scope.
func (p *Pool) Scope(fn func(*Pool) error) error {
	p.Start()
	defer p.Shutdown()
	return fn(p)
}

// Map is the one-shot convenience: construct a pool, execute the batch,
// and shut everything down before returning.
func Map(ctx context.Context, deviceCount int, fn WorkFunc, tasks []Task, opts ...Option) ([]Outcome, error) {
	p, err := New(deviceCount, opts...)
	if err != nil {
		return nil, err
	}
	defer p.Shutdown()

	p.Start()
	return p.Execute(ctx, fn, tasks)
}
