package pool

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// pollInterval is how long an idle isolated worker waits on its
	// queue before re-checking the shutdown signal.
	pollInterval = time.Second

	// maintenanceInterval is the completed-task count between
	// best-effort maintenance passes on an isolated worker.
	maintenanceInterval = 10

	// joinTimeout bounds how long Shutdown waits for each isolated
	// worker before abandoning it.
	joinTimeout = 5 * time.Second

	// queueDepthFactor sizes each device's inbound queue relative to
	// the device count, providing submission backpressure.
	queueDepthFactor = 2
)

// Option configures a Pool at construction.
type Option func(*config)

type config struct {
	strategy    Strategy
	initializer Initializer
	releaser    Releaser
	maintenance MaintenanceFunc
	progress    ProgressFunc
	logger      *logrus.Logger
	limiter     *rate.Limiter
	maxAttempts int
	retryDelay  time.Duration
	verbose     bool
}

// WithStrategy selects the execution strategy.
// If not specified, defaults to StrategyShared.
func WithStrategy(s Strategy) Option {
	return func(cfg *config) {
		cfg.strategy = s
	}
}

// WithInitializer sets the per-device context initializer. It runs once
// per device; its result is injected into every task on that device.
func WithInitializer(fn Initializer) Option {
	return func(cfg *config) {
		cfg.initializer = fn
	}
}

// WithReleaser sets the context teardown hook invoked on shutdown.
// Release is best-effort; failures never reach the caller.
func WithReleaser(fn Releaser) Option {
	return func(cfg *config) {
		cfg.releaser = fn
	}
}

// WithMaintenance sets a per-device housekeeping hook, run after every
// ten completed tasks on an isolated worker and once at worker exit.
func WithMaintenance(fn MaintenanceFunc) Option {
	return func(cfg *config) {
		cfg.maintenance = fn
	}
}

// WithProgress sets a completion observer, replacing the default
// progress bar. It is called once per finished task.
func WithProgress(fn ProgressFunc) Option {
	return func(cfg *config) {
		cfg.progress = fn
	}
}

// WithVerbose enables progress rendering and per-device logging on
// stderr, plus the execution report after each batch.
func WithVerbose(verbose bool) Option {
	return func(cfg *config) {
		cfg.verbose = verbose
	}
}

// WithLogger replaces the pool's logger. By default a verbose pool logs
// at Info level to stderr and a quiet pool discards everything.
func WithLogger(logger *logrus.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRateLimit throttles task admission across the whole pool.
// tasksPerSecond is the sustained rate, burst the short-term allowance.
// Useful when the work functions hit an external service.
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.limiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithRetryPolicy retries failed work functions up to maxAttempts
// times with exponential backoff starting at initialDelay. The policy
// applies to work functions only; a failed initializer is never
// retried.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.retryDelay = initialDelay
		}
	}
}

// newConfig applies options over the defaults and finalizes the logger.
func newConfig(opts ...Option) *config {
	cfg := &config{
		strategy:    StrategyShared,
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = logrus.New()
		if cfg.verbose {
			cfg.logger.SetOutput(os.Stderr)
			cfg.logger.SetLevel(logrus.InfoLevel)
		} else {
			cfg.logger.SetOutput(io.Discard)
		}
	}
	return cfg
}

// ExecOption configures a single Execute call.
type ExecOption func(*execConfig)

type execConfig struct {
	taskIDs     []string
	description string
}

// WithTaskIDs assigns explicit task ids to the batch, positionally.
// Must match the batch length. Ids do not influence device assignment.
func WithTaskIDs(ids []string) ExecOption {
	return func(cfg *execConfig) {
		cfg.taskIDs = ids
	}
}

// WithDescription labels the batch in progress output.
func WithDescription(desc string) ExecOption {
	return func(cfg *execConfig) {
		if desc != "" {
			cfg.description = desc
		}
	}
}
