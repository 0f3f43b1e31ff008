package bms

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/evtelemetry/bmsbridge/canbus"
)

// SchedulerConfig is the immutable configuration of a Scheduler.
type SchedulerConfig struct {
	// Fast is the tick period; FastSet is issued on every tick.
	Fast time.Duration
	// Slow is the minimum time between two SlowSet batches. Slow batches are
	// only issued on a tick, so their jitter is bounded by Fast.
	Slow time.Duration
	// Spacing is the minimum gap between two consecutive requests. Zero
	// disables pacing.
	Spacing time.Duration

	FastSet []RequestDescriptor
	SlowSet []RequestDescriptor
}

// DefaultSchedulerConfig returns the compiled-in cadences and request tables.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Fast:    Fast.DefaultPeriod(),
		Slow:    Slow.DefaultPeriod(),
		Spacing: DefaultSpacing,
		FastSet: FastSet[:],
		SlowSet: SlowSet[:],
	}
}

// Period returns the configured period of cadence c.
func (c SchedulerConfig) Period(cad Cadence) time.Duration {
	if cad == Slow {
		return c.Slow
	}
	return c.Fast
}

func (c SchedulerConfig) validate() error {
	switch {
	case c.Fast <= 0:
		return errors.New("bms: fast period must be > 0")
	case c.Slow <= 0:
		return errors.New("bms: slow period must be > 0")
	case c.Spacing < 0:
		return errors.New("bms: request spacing must be >= 0")
	case len(c.FastSet) == 0 && len(c.SlowSet) == 0:
		return errors.New("bms: no requests configured")
	}
	return nil
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithBatchHook registers fn to be called after each fully issued batch with
// its cadence and request count.
func WithBatchHook(fn func(Cadence, int)) SchedulerOption {
	return func(s *Scheduler) { s.onBatch = fn }
}

// WithSchedulerLogger sets the logger used for batch debug output.
func WithSchedulerLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler issues the fast and slow request tables on a bus. It never reads
// from the bus and keeps no state besides the time of the last slow batch.
// A Scheduler must be driven by a single goroutine.
type Scheduler struct {
	bus     canbus.Bus
	cfg     SchedulerConfig
	pace    *rate.Limiter
	onBatch func(Cadence, int)
	logger  *zap.Logger

	slowIssued bool
	lastSlow   time.Time
}

// NewScheduler creates a scheduler transmitting on bus. The request tables
// are copied.
func NewScheduler(bus canbus.Bus, cfg SchedulerConfig, opts ...SchedulerOption) (*Scheduler, error) {
	if bus == nil {
		return nil, errors.New("bms: scheduler bus required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.FastSet = append([]RequestDescriptor(nil), cfg.FastSet...)
	cfg.SlowSet = append([]RequestDescriptor(nil), cfg.SlowSet...)

	limit := rate.Inf
	if cfg.Spacing > 0 {
		limit = rate.Every(cfg.Spacing)
	}
	s := &Scheduler{
		bus:    bus,
		cfg:    cfg,
		pace:   rate.NewLimiter(limit, 1),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Config returns the scheduler configuration.
func (s *Scheduler) Config() SchedulerConfig { return s.cfg }

// Tick issues FastSet, then SlowSet when no slow batch was issued yet or at
// least Slow has elapsed between the last slow batch and now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	if err := s.issue(ctx, Fast, s.cfg.FastSet); err != nil {
		return err
	}
	if s.slowIssued && now.Sub(s.lastSlow) < s.cfg.Slow {
		return nil
	}
	if err := s.issue(ctx, Slow, s.cfg.SlowSet); err != nil {
		return err
	}
	s.slowIssued = true
	s.lastSlow = now
	return nil
}

func (s *Scheduler) issue(ctx context.Context, c Cadence, set []RequestDescriptor) error {
	if len(set) == 0 {
		return nil
	}
	for _, d := range set {
		if err := s.pace.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if err := s.bus.Send(ctx, d.Frame()); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &TransmitError{Cadence: c, Descriptor: d, Err: err}
		}
	}
	s.logger.Debug("request batch issued",
		zap.Stringer("cadence", c),
		zap.Duration("period", s.cfg.Period(c)),
		zap.Int("requests", len(set)),
	)
	if s.onBatch != nil {
		s.onBatch(c, len(set))
	}
	return nil
}

// Run ticks immediately and then every Fast period until ctx is done. It
// returns nil on cancellation and a *TransmitError when a request cannot be
// sent; there is no retry.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Fast)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx, time.Now()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
