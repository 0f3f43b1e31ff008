package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evtelemetry/bmsbridge/bms"
	"github.com/evtelemetry/bmsbridge/bridge"
	"github.com/evtelemetry/bmsbridge/internal/config"
	"github.com/evtelemetry/bmsbridge/internal/metrics"
	"github.com/evtelemetry/bmsbridge/sink"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		decodeLive = false
		configPath, logLevel = "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDecodeCommand(t *testing.T) {
	out, err := execute(t, "decode", "0x14FF21D0", "00 00 64 00 F6 FF 00 00")
	require.NoError(t, err)
	assert.Contains(t, out, "power,system=pack pack_voltage=10,pack_current=-1\n")
	assert.Contains(t, out, "PACKSUM")
}

func TestDecodeCommand_Live(t *testing.T) {
	out, err := execute(t, "decode", "--live", "0x14FF24D0", "00:50:A4:01:0D:02")
	require.NoError(t, err)
	assert.Contains(t, out, "power,system=pack soc=80,pack_kwh_current=42,pack_kwh_max=52.5\n")
	assert.Contains(t, out, "  soc = 80\n")
}

func TestDecodeCommand_Errors(t *testing.T) {
	_, err := execute(t, "decode", "zz", "00")
	assert.ErrorContains(t, err, "invalid id")

	_, err = execute(t, "decode", "0x14FF21D0", "0g")
	assert.ErrorContains(t, err, "invalid payload")

	_, err = execute(t, "decode", "0x14FF21D0", "00 00 64")
	assert.ErrorIs(t, err, bms.ErrTruncatedPayload)

	out, err := execute(t, "decode", "0x123", "01")
	require.NoError(t, err)
	assert.Contains(t, out, "no decoder")

	out, err = execute(t, "decode", "0x14FF99D0", "01")
	require.NoError(t, err)
	assert.Contains(t, out, "PGN(0x99) response, no decoder")
}

func TestConfigCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BMSBRIDGE_CONFIG", "")
	t.Setenv("BMSBRIDGE_MQTT_PASSWORD", "secret")

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "interface: can0")
	assert.Contains(t, out, "fast: 100ms")
	assert.NotContains(t, out, "secret")
}

func TestBuildPublisher_LogWithQueue(t *testing.T) {
	cfg := &config.Config{Publish: config.PublishConfig{Sink: config.SinkLog, QueueSize: 4}}
	bm := metrics.NewBridgeMetrics(metrics.NewRegistry())

	pub, closePub, err := buildPublisher(context.Background(), cfg, bm, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, isQueue := pub.(*sink.Queue)
	assert.True(t, isQueue)
	require.NoError(t, pub.Publish(context.Background(), "mcu", "x"))
	closePub()
}

func TestLoopbackDryRun(t *testing.T) {
	runLoopback = true
	t.Cleanup(func() { runLoopback = false })

	cfg := &config.Config{Bus: config.BusConfig{Interface: "sim0", LogFrames: true}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	open, closeBus, err := buildOpener(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer closeBus()

	got := make(chan string, 64)
	pub := bridge.PublisherFunc(func(_ context.Context, topic, payload string) error {
		select {
		case got <- payload:
		default:
		}
		return nil
	})

	bc := bridge.DefaultConfig()
	bc.Interface = "sim0"
	bc.Scheduler.Fast = 10 * time.Millisecond
	bc.Scheduler.Spacing = 0
	rt, err := bridge.New(bc, open, pub, zaptest.NewLogger(t))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	select {
	case line := <-got:
		assert.Contains(t, line, "power,system=")
	case <-time.After(2 * time.Second):
		t.Fatal("no record published from simulated BMS")
	}
	cancel()
	assert.NoError(t, <-done)
}
