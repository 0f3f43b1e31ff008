package bms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtelemetry/bmsbridge/canbus"
)

func TestDefaultResponses_Decode(t *testing.T) {
	want := map[PGN][]Record{
		PGNPackSummary:    {PackSummary{Voltage: 352.0, Current: -12.5}},
		PGNSOCSummary:     {SocSummary{SOC: 80, KWhCurrent: 42.0, KWhMax: 52.5}},
		PGNThermistorSum:  {ThermistorSummary{Count: 12, TempLow: 21, TempHigh: 27, AlarmLow: -10, AlarmHigh: 55}},
		PGNCellGroup1TH:   {AuxThermistorPair{ThA: 22, ThB: 23}},
		PGNCellVoltageSum: {CellVoltageSummary{Low: 3.65, Mean: 3.68, High: 3.71}},
	}
	for p, payloads := range DefaultResponses() {
		for _, data := range payloads {
			recs, err := Decode(canbus.MustFrame(p.ResponseID(), data))
			require.NoError(t, err, p.String())
			require.NotEmpty(t, recs, p.String())
		}
		if w, ok := want[p]; ok {
			recs, err := Decode(canbus.MustFrame(p.ResponseID(), DefaultResponses()[p][0]))
			require.NoError(t, err)
			assert.Equal(t, w, recs, p.String())
		}
	}
}

func TestDefaultResponses_CoverTwentyCells(t *testing.T) {
	var cells []int
	for _, p := range []PGN{PGNCellGroup1CV, PGNCellGroup2CV} {
		for _, data := range DefaultResponses()[p] {
			recs, err := Decode(canbus.MustFrame(p.ResponseID(), data))
			require.NoError(t, err)
			for _, r := range recs {
				cells = append(cells, r.(CellGroupVoltages).CellNumbers...)
			}
		}
	}
	want := make([]int, 2*CellsPerGroup)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, cells)
}

func TestResponder_AnswersRequests(t *testing.T) {
	lb := canbus.NewLoopbackBus()
	defer lb.Close()
	host := lb.Open()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	responder := NewResponder(lb.Open(), nil, nil)
	done := make(chan error, 1)
	go func() { done <- responder.Serve(ctx) }()

	require.NoError(t, host.Send(ctx, Request(PGNPackSummary).Frame()))
	f, err := host.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, PGNPackSummary.ResponseID(), f.ID)
	assert.True(t, f.Extended)

	recs, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, []Record{PackSummary{Voltage: 352.0, Current: -12.5}}, recs)

	cancel()
	assert.NoError(t, <-done)
}

func TestResponder_IgnoresNonRequests(t *testing.T) {
	lb := canbus.NewLoopbackBus()
	defer lb.Close()
	host := lb.Open()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp := map[PGN][][]byte{PGNSOCSummary: {{0, 50, 0, 0, 0, 0}}}
	responder := NewResponder(lb.Open(), resp, nil)
	go func() { _ = responder.Serve(ctx) }()

	// Not a request, then an unanswered PGN, then an answered one.
	require.NoError(t, host.Send(ctx, canbus.MustFrame(0x123, []byte{0x24})))
	require.NoError(t, host.Send(ctx, Request(PGNPackSummary).Frame()))
	require.NoError(t, host.Send(ctx, Request(PGNSOCSummary).Frame()))

	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()
	f, err := host.Receive(rctx)
	require.NoError(t, err)
	assert.Equal(t, PGNSOCSummary.ResponseID(), f.ID)
}
