package pool

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// sentinelTimeout bounds how long shutdown tries to push a wake-up
// sentinel into a device's full queue before giving up on it.
const sentinelTimeout = time.Second

// isolatedEngine provides fault isolation: exactly one resident worker
// per device, each owning a private context that is never visible to
// another worker. Tasks flow in through per-device bounded queues and
// come back on a single shared outbound channel. The only state shared
// between workers is that channel and the shutdown signal.
type isolatedEngine struct {
	cfg         *config
	deviceCount int

	started    bool
	inbound    []chan isoTask
	outbound   chan Outcome
	shutdownCh chan struct{}
	done       []chan struct{}
}

// isoTask is one queued unit of work. A zero isoTask (nil fn) is the
// shutdown sentinel.
type isoTask struct {
	ctx context.Context
	fn  WorkFunc
	p   prepared
}

func newIsolatedEngine(deviceCount int, cfg *config) *isolatedEngine {
	return &isolatedEngine{
		cfg:         cfg,
		deviceCount: deviceCount,
	}
}

// start spins up one worker per device. Idempotent; a restart after
// shutdown builds a fresh set of workers and queues.
func (e *isolatedEngine) start() {
	if e.started {
		return
	}

	e.cfg.logger.WithField("workers", e.deviceCount).Info("starting isolated workers")

	depth := queueDepthFactor * e.deviceCount
	e.inbound = make([]chan isoTask, e.deviceCount)
	e.done = make([]chan struct{}, e.deviceCount)
	e.outbound = make(chan Outcome, depth)
	e.shutdownCh = make(chan struct{})

	for id := 0; id < e.deviceCount; id++ {
		e.inbound[id] = make(chan isoTask, depth)
		e.done[id] = make(chan struct{})
		go e.worker(id, e.inbound[id], e.outbound, e.shutdownCh, e.done[id])
	}
	e.started = true
}

// submit feeds the batch into the per-device queues in the background.
// A full queue blocks the feeder — that is the backpressure contract —
// so submission never outruns the devices by more than the queue depth.
func (e *isolatedEngine) submit(ctx context.Context, fn WorkFunc, batch []prepared) {
	e.start()

	inbound := e.inbound
	shutdownCh := e.shutdownCh
	go func() {
		for _, p := range batch {
			select {
			case inbound[p.deviceID] <- isoTask{ctx: ctx, fn: fn, p: p}:
			case <-shutdownCh:
				return
			}
		}
	}()
}

// collect blocks until one Outcome per submitted task has arrived on
// the outbound channel, in whatever order the devices produce them.
// Synthetic INIT_FAILED outcomes ride along without counting against
// the expected total.
func (e *isolatedEngine) collect(_ context.Context, expect int, observe ProgressFunc) []Outcome {
	outs := make([]Outcome, 0, expect)
	counted := 0
	for counted < expect {
		out := <-e.outbound
		outs = append(outs, out)
		if out.TaskID == InitFailedTaskID {
			continue
		}
		counted++
		if observe != nil {
			observe(out.DeviceID, out.TaskID, out.Duration, out.Success())
		}
	}
	return outs
}

// worker is the resident loop for one device. It initializes its
// private context once, then pulls tasks until it sees the shutdown
// sentinel or signal. An idle worker re-polls every pollInterval so a
// shutdown is noticed within that cadence.
func (e *isolatedEngine) worker(deviceID int, inbound <-chan isoTask, outbound chan<- Outcome, shutdownCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	log := e.cfg.logger.WithField("device", deviceID)

	initStart := time.Now()
	devCtx, err := e.initContext(deviceID)
	if err != nil {
		log.WithError(err).Warn("worker initialization failed, device silenced")
		outbound <- Outcome{
			Index:    -1,
			TaskID:   InitFailedTaskID,
			DeviceID: deviceID,
			Err:      fmt.Errorf("worker initialization failed: %w", err),
		}
		e.drain(deviceID, err, inbound, outbound, shutdownCh)
		return
	}
	if e.cfg.initializer != nil {
		log.WithField("elapsed", time.Since(initStart).Round(time.Millisecond)).
			Info("isolated context loaded")
	} else {
		log.Info("worker ready (no context)")
	}

	completed := 0
	defer func() {
		e.maintain(deviceID, devCtx)
		releaseContext(e.cfg.releaser, deviceID, devCtx)
		log.WithField("processed", completed).Info("worker shutting down")
	}()

	for {
		select {
		case t := <-inbound:
			if t.fn == nil {
				return
			}
			outbound <- e.cfg.runTask(t.ctx, t.p, devCtx, t.fn)
			completed++
			if completed%maintenanceInterval == 0 {
				e.maintain(deviceID, devCtx)
			}
		case <-shutdownCh:
			return
		case <-time.After(pollInterval):
			// Idle; loop around so the shutdown signal is re-checked.
		}
	}
}

// drain keeps a dead device's queue moving so producers never block on
// it. Each stranded task gets a failed Outcome naming the cause; the
// device id is -1 because no device ever ran it.
func (e *isolatedEngine) drain(deviceID int, cause error, inbound <-chan isoTask, outbound chan<- Outcome, shutdownCh <-chan struct{}) {
	for {
		select {
		case t := <-inbound:
			if t.fn == nil {
				return
			}
			outbound <- Outcome{
				Index:    t.p.index,
				TaskID:   t.p.id,
				DeviceID: -1,
				Err:      fmt.Errorf("device %d unavailable: initialization failed: %w", deviceID, cause),
			}
		case <-shutdownCh:
			return
		}
	}
}

// initContext runs the initializer with panic recovery. No initializer
// means no context, which is not an error.
func (e *isolatedEngine) initContext(deviceID int) (devCtx any, err error) {
	if e.cfg.initializer == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("initializer panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()
	return e.cfg.initializer(context.Background(), deviceID)
}

// maintain runs the housekeeping hook, swallowing anything it throws.
func (e *isolatedEngine) maintain(deviceID int, devCtx any) {
	if e.cfg.maintenance == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	e.cfg.maintenance(deviceID, devCtx)
}

// shutdown flips the shared signal, nudges every queue with a sentinel
// so idle workers wake, then joins each worker under a bounded timeout.
// A worker stuck inside a task past the timeout is abandoned with a
// warning. Safe to call repeatedly or without a prior start.
func (e *isolatedEngine) shutdown() {
	if !e.started {
		return
	}

	e.cfg.logger.Info("shutting down isolated workers")
	close(e.shutdownCh)

	for id := range e.inbound {
		select {
		case e.inbound[id] <- isoTask{}:
		case <-time.After(sentinelTimeout):
			// Queue full; the worker will observe the shutdown signal.
		}
	}

	for id, d := range e.done {
		if err := waitUntil(d, joinTimeout); err != nil {
			e.cfg.logger.WithField("device", id).WithError(err).
				Warn("worker still busy, abandoning")
		}
	}
	e.started = false
}
