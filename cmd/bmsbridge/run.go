package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evtelemetry/bmsbridge/bms"
	"github.com/evtelemetry/bmsbridge/bridge"
	"github.com/evtelemetry/bmsbridge/canbus"
	"github.com/evtelemetry/bmsbridge/internal/config"
	"github.com/evtelemetry/bmsbridge/internal/httpserver"
	"github.com/evtelemetry/bmsbridge/internal/logging"
	"github.com/evtelemetry/bmsbridge/internal/metrics"
	"github.com/evtelemetry/bmsbridge/sink"
)

var (
	runIface    string
	runLoopback bool
	runDryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge",
	Long: `Run the request scheduler and the receive loop until interrupted.

--loopback replaces the CAN interface with an in-memory bus and a simulated
BMS. --dry-run logs payloads instead of publishing them.`,
	Args: cobra.NoArgs,
	RunE: runBridge,
}

func init() {
	runCmd.Flags().StringVarP(&runIface, "iface", "i", "", "CAN interface (overrides bus.interface)")
	runCmd.Flags().BoolVar(&runLoopback, "loopback", false, "Use an in-memory bus with a simulated BMS")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log payloads instead of publishing")
	rootCmd.AddCommand(runCmd)
}

func runBridge(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runIface != "" {
		cfg.Bus.Interface = runIface
	}
	if runDryRun {
		cfg.Publish.Sink = config.SinkLog
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	bm := metrics.NewBridgeMetrics(reg)

	open, closeBus, err := buildOpener(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	pub, closePub, err := buildPublisher(ctx, cfg, bm, logger)
	if err != nil {
		return err
	}
	defer closePub()

	rt, err := bridge.New(cfg.BridgeConfig(), open, pub, logger.Named("bridge"), bridge.WithObserver(bm))
	if err != nil {
		return err
	}

	if cfg.HTTP.Enable {
		srv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metrics.Handler(reg), rt.Ready, logger.Named("http"))
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := rt.Run(ctx); err != nil {
		var te *bms.TransmitError
		if errors.As(err, &te) {
			logger.Error("transmit failed, exiting", zap.Stringer("cadence", te.Cadence),
				zap.Stringer("request", te.Descriptor), zap.Error(te.Err))
		}
		return err
	}
	return nil
}

// buildOpener returns the bus opener for the configured interface, or a
// loopback bus answered by a simulated BMS.
func buildOpener(ctx context.Context, cfg *config.Config, logger *zap.Logger) (bridge.Opener, func(), error) {
	var open bridge.Opener
	closeBus := func() {}

	if runLoopback {
		lb := canbus.NewLoopbackBus()
		responder := bms.NewResponder(lb.Open(), nil, logger.Named("simulator"))
		go func() {
			if err := responder.Serve(ctx); err != nil {
				logger.Error("simulator stopped", zap.Error(err))
			}
		}()
		open = lb.Opener
		closeBus = func() {
			if n := lb.Overruns(); n > 0 {
				logger.Info("loopback overruns", zap.Uint64("frames", n))
			}
			_ = lb.Close()
		}
		logger.Info("using loopback bus with simulated BMS")
	} else {
		if err := prepareInterface(cfg.Bus, logger); err != nil {
			return nil, nil, err
		}
		open = canbus.DialSocketCAN
	}

	if cfg.Bus.LogFrames {
		inner := open
		canLog := logger.Named("can")
		watch := canbus.Or(canbus.ByID(bms.RequestID), canbus.ByMask(bms.ResponseBase, bms.ResponseMask))
		open = func(iface string) (canbus.Bus, error) {
			b, err := inner(iface)
			if err != nil {
				return nil, err
			}
			return canbus.NewLoggedBus(b, canLog, zapcore.DebugLevel, canbus.LogAll, watch), nil
		}
	}
	return open, closeBus, nil
}

func prepareInterface(bus config.BusConfig, logger *zap.Logger) error {
	if bus.BringUp {
		err := canbus.BringUp(bus.Interface, canbus.InterfaceOptions{Bitrate: bus.Bitrate, RestartMs: bus.RestartMs})
		if err != nil {
			return fmt.Errorf("bring up %s: %w", bus.Interface, canbus.RequireRootOrCapNetAdmin(err))
		}
		logger.Info("interface up", zap.String("iface", bus.Interface), zap.Uint32("bitrate", bus.Bitrate))
		return nil
	}
	up, err := canbus.IsInterfaceUp(bus.Interface)
	switch {
	case err != nil:
		logger.Warn("cannot query interface state", zap.String("iface", bus.Interface), zap.Error(err))
	case !up:
		logger.Warn("interface is down; set bus.bring_up or run 'ip link set up'", zap.String("iface", bus.Interface))
	}
	return nil
}

// buildPublisher returns the configured sink, wrapped in a bounded queue when
// publish.queue_size is positive.
func buildPublisher(ctx context.Context, cfg *config.Config, bm *metrics.BridgeMetrics, logger *zap.Logger) (bridge.Publisher, func(), error) {
	var (
		pub      bridge.Publisher
		closeFns []func() error
	)
	switch cfg.Publish.Sink {
	case config.SinkMQTT:
		m := sink.NewMQTT(cfg.MQTTOptions(), logger.Named("mqtt"))
		if err := m.Connect(ctx); err != nil {
			logger.Warn("mqtt broker unavailable, will retry on publish", zap.Error(err))
		}
		pub = m
		closeFns = append(closeFns, m.Close)
	case config.SinkRedis:
		r, err := sink.NewRedis(ctx, cfg.RedisOptions())
		if err != nil {
			return nil, nil, err
		}
		pub = r
		closeFns = append(closeFns, r.Close)
	case config.SinkLog:
		pub = sink.NewLog(logger.Named("publish"))
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", cfg.Publish.Sink)
	}

	if cfg.Publish.QueueSize > 0 {
		q := sink.NewQueue(pub, cfg.Publish.QueueSize, logger.Named("queue"),
			sink.WithDropHook(bm.QueueDrop),
			sink.WithForwardHook(bm.QueueForward),
			sink.WithDrainTimeout(cfg.Publish.DrainTimeout),
		)
		pub = q
		// The queue drains before the sink closes.
		closeFns = append([]func() error{q.Close}, closeFns...)
	}

	return pub, func() {
		for _, fn := range closeFns {
			if err := fn(); err != nil {
				logger.Warn("close publisher", zap.Error(err))
			}
		}
	}, nil
}
