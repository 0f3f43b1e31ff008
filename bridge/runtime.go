// Package bridge runs the BMS telemetry bridge: a request scheduler and a
// receive/decode loop, each on its own bus handle, publishing decoded
// records to a Publisher.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evtelemetry/bmsbridge/bms"
	"github.com/evtelemetry/bmsbridge/canbus"
)

// Opener opens a bus handle on the named interface. It is called once per
// direction.
type Opener func(iface string) (canbus.Bus, error)

// Config is the immutable runtime configuration.
type Config struct {
	Interface string
	Scheduler bms.SchedulerConfig

	// Topic receives one line-protocol payload per record.
	Topic string
	// Live mirrors selected fields to LivePrefix/<field> as bare values.
	Live       bool
	LivePrefix string

	// ReceiveBackoff is the pause after a failed receive.
	ReceiveBackoff time.Duration
}

// DefaultConfig returns the configuration of the stock bridge on can0.
func DefaultConfig() Config {
	return Config{
		Interface:      "can0",
		Scheduler:      bms.DefaultSchedulerConfig(),
		Topic:          "mcu",
		LivePrefix:     "live/mcu",
		ReceiveBackoff: 10 * time.Millisecond,
	}
}

// Option customizes a Runtime.
type Option func(*Runtime)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(r *Runtime) {
		if o != nil {
			r.obs = o
		}
	}
}

// Runtime owns the two bus handles and the two loops.
type Runtime struct {
	cfg    Config
	open   Opener
	pub    Publisher
	logger *zap.Logger
	obs    Observer
	accept canbus.FrameFilter

	running atomic.Int32

	// Owned by the receive loop.
	alertsSeen bool
	lastAlerts uint16
}

// New creates a Runtime. Nothing is opened until Run.
func New(cfg Config, open Opener, pub Publisher, logger *zap.Logger, opts ...Option) (*Runtime, error) {
	if open == nil {
		return nil, errors.New("bridge: opener required")
	}
	if pub == nil {
		return nil, errors.New("bridge: publisher required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("bridge: topic required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		cfg:    cfg,
		open:   open,
		pub:    pub,
		logger: logger,
		obs:    NopObserver(),
		accept: canbus.And(
			canbus.And(canbus.ExtendedOnly(), canbus.DataOnly()),
			canbus.ByIDs(bms.ResponseIDs()...),
		),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Ready reports whether both loops are running.
func (r *Runtime) Ready() bool {
	return r.running.Load() == 2
}

// Run opens the transmit and receive handles and runs the scheduler and the
// receive loop until ctx is done or the scheduler fails. Cancellation returns
// nil; a transmit failure is returned as *bms.TransmitError.
func (r *Runtime) Run(ctx context.Context) error {
	tx, err := r.open(r.cfg.Interface)
	if err != nil {
		return fmt.Errorf("bridge: open transmit bus on %s: %w", r.cfg.Interface, err)
	}
	defer tx.Close()

	rx, err := r.open(r.cfg.Interface)
	if err != nil {
		return fmt.Errorf("bridge: open receive bus on %s: %w", r.cfg.Interface, err)
	}
	defer rx.Close()

	sched, err := bms.NewScheduler(tx, r.cfg.Scheduler,
		bms.WithBatchHook(r.obs.BatchIssued),
		bms.WithSchedulerLogger(r.logger.Named("scheduler")),
	)
	if err != nil {
		return err
	}

	r.logger.Info("bridge started",
		zap.String("iface", r.cfg.Interface),
		zap.Duration("fast", r.cfg.Scheduler.Fast),
		zap.Duration("slow", r.cfg.Scheduler.Slow),
		zap.String("topic", r.cfg.Topic),
		zap.Bool("live", r.cfg.Live),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.running.Add(1)
		defer r.running.Add(-1)
		if err := sched.Run(gctx); err != nil {
			r.logger.Error("request scheduler stopped", zap.Error(err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		r.running.Add(1)
		defer r.running.Add(-1)
		return r.receiveLoop(gctx, rx)
	})

	err = g.Wait()
	r.logger.Info("bridge stopped", zap.Error(err))
	return err
}

func (r *Runtime) receiveLoop(ctx context.Context, rx canbus.Bus) error {
	log := r.logger.Named("receive")
	for {
		f, err := rx.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, canbus.ErrClosed) {
				return fmt.Errorf("bridge: receive bus: %w", err)
			}
			r.obs.ReceiveFailed()
			log.Warn("receive failed", zap.Error(err))
			if r.cfg.ReceiveBackoff > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(r.cfg.ReceiveBackoff):
				}
			}
			continue
		}
		r.handleFrame(ctx, log, f)
	}
}

func (r *Runtime) handleFrame(ctx context.Context, log *zap.Logger, f canbus.Frame) {
	r.obs.FrameReceived()
	if !r.accept(f) {
		r.obs.FrameIgnored()
		return
	}
	recs, err := bms.Decode(f)
	if err != nil {
		r.obs.DecodeFailed()
		fields := []zap.Field{zap.Stringer("frame", f), zap.Error(err)}
		if p, ok := bms.PGNOf(f.ID); ok {
			fields = append(fields, zap.Stringer("pgn", p))
		}
		log.Warn("discarding frame", fields...)
		return
	}
	if len(recs) == 0 {
		r.obs.FrameIgnored()
		return
	}
	for _, rec := range recs {
		r.obs.RecordDecoded(rec.Kind())
		if a, ok := rec.(bms.AlertBitfield); ok {
			r.noteAlerts(log, a)
		}
		r.publish(ctx, log, r.cfg.Topic, bms.Line(rec))
		if !r.cfg.Live {
			continue
		}
		for _, field := range rec.Live() {
			r.publish(ctx, log, path.Join(r.cfg.LivePrefix, field.Name), bms.LiveValue(field))
		}
	}
}

// noteAlerts logs the active alert set whenever it changes.
func (r *Runtime) noteAlerts(log *zap.Logger, a bms.AlertBitfield) {
	if r.alertsSeen && a.Raw == r.lastAlerts {
		return
	}
	prev := r.lastAlerts
	r.alertsSeen, r.lastAlerts = true, a.Raw
	active := a.Active()
	if len(active) == 0 {
		if prev != 0 {
			log.Info("bms alerts cleared")
		}
		return
	}
	log.Warn("bms alerts active", zap.Strings("alerts", active), zap.Uint16("raw", a.Raw))
}

func (r *Runtime) publish(ctx context.Context, log *zap.Logger, topic, payload string) {
	err := r.pub.Publish(ctx, topic, payload)
	r.obs.Published(err)
	if err != nil {
		log.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
