package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// contextStore owns the shared-strategy device contexts: one slot per
// device, filled exactly once at first use, each guarded by its own
// exclusive lock. A slot whose initializer failed is poisoned — every
// task assigned to that device fails fast with the stored cause.
type contextStore struct {
	initializer Initializer
	releaser    Releaser
	logger      *logrus.Logger

	mu     sync.Mutex
	loaded bool
	ready  chan struct{}
	slots  []slot
	locks  []sync.Mutex
}

type slot struct {
	devCtx any
	err    error
}

func newContextStore(deviceCount int, cfg *config) *contextStore {
	return &contextStore{
		initializer: cfg.initializer,
		releaser:    cfg.releaser,
		logger:      cfg.logger,
		ready:       make(chan struct{}),
		slots:       make([]slot, deviceCount),
		locks:       make([]sync.Mutex, deviceCount),
	}
}

// ensure fills every context slot, once. Subsequent calls return
// immediately. A failed initializer poisons only its own device; the
// remaining devices still load.
func (s *contextStore) ensure(ctx context.Context) {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return
	}
	ready := s.ready
	s.mu.Unlock()

	for id := range s.slots {
		if s.initializer == nil {
			continue
		}

		start := time.Now()
		devCtx, err := s.initialize(ctx, id)
		if err != nil {
			s.slots[id].err = fmt.Errorf("device %d context initialization failed: %w", id, err)
			s.logger.WithFields(logrus.Fields{"device": id, "error": err}).
				Warn("context initialization failed, device poisoned")
			continue
		}

		s.slots[id].devCtx = devCtx
		s.logger.WithFields(logrus.Fields{"device": id, "elapsed": time.Since(start).Round(time.Millisecond)}).
			Info("shared context loaded")
	}

	s.mu.Lock()
	s.loaded = true
	close(ready)
	s.mu.Unlock()
}

// initialize runs the user initializer with panic recovery.
func (s *contextStore) initialize(ctx context.Context, deviceID int) (devCtx any, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("initializer panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()
	return s.initializer(ctx, deviceID)
}

// await blocks until the one-time initialization barrier is down.
func (s *contextStore) await(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire takes the device's exclusive lock and returns its context, or
// the poisoning error. The caller must invoke the returned unlock after
// the task finishes.
func (s *contextStore) acquire(deviceID int) (devCtx any, unlock func(), err error) {
	s.locks[deviceID].Lock()
	sl := s.slots[deviceID]
	return sl.devCtx, s.locks[deviceID].Unlock, sl.err
}

// release tears down every loaded context, best-effort, and resets the
// store so a later Execute can initialize again. Releaser failures are
// swallowed.
func (s *contextStore) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}

	for id := range s.slots {
		if s.slots[id].devCtx != nil {
			releaseContext(s.releaser, id, s.slots[id].devCtx)
		}
		s.slots[id] = slot{}
	}
	s.loaded = false
	s.ready = make(chan struct{})
}

// releaseContext invokes the releaser, swallowing panics. Cleanup never
// escalates to the caller.
func releaseContext(release Releaser, deviceID int, devCtx any) {
	if release == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	release(deviceID, devCtx)
}
