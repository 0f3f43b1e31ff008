package bms

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/evtelemetry/bmsbridge/canbus"
)

// DefaultResponses returns plausible response payloads for every known PGN:
// a 20-cell pack at 352.0 V discharging 12.5 A, 80% charged.
func DefaultResponses() map[PGN][][]byte {
	cells := func(index byte) []byte {
		// 3.6800 V per cell.
		return []byte{index, 0x00, 0xC0, 0x8F, 0xC0, 0x8F, 0xC0, 0x8F}
	}
	group := [][]byte{cells(0), cells(1), cells(2), cells(3)}
	return map[PGN][][]byte{
		PGNMCUSummary:     {{0x00, 0x00, 0xD2, 0x04, 10, 5, 0x00, 0x00}},
		PGNPackSummary:    {{0x00, 0x00, 0xC0, 0x0D, 0x83, 0xFF, 0x00, 0x00}},
		PGNCellVoltageSum: {{0x00, 0x00, 0x94, 0x8E, 0xC0, 0x8F, 0xEC, 0x90}},
		PGNThermistorSum:  {{0x00, 12, 21, 27, 0x00, 0x00, 0xF6, 55}},
		PGNSOCSummary:     {{0x00, 80, 0xA4, 0x01, 0x0D, 0x02, 0x00, 0x00}},
		PGNCellGroup1CV:   group,
		PGNCellGroup2CV:   group,
		PGNCellGroup1TH:   {{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 22, 23}},
	}
}

// Responder plays the BMS side of the protocol on a bus: every request
// frame is answered with the canned payloads of its PGN. It backs dry runs
// on a loopback bus.
type Responder struct {
	bus       canbus.Bus
	responses map[PGN][][]byte
	logger    *zap.Logger
}

// NewResponder creates a responder. A nil responses map uses
// DefaultResponses.
func NewResponder(bus canbus.Bus, responses map[PGN][][]byte, logger *zap.Logger) *Responder {
	if responses == nil {
		responses = DefaultResponses()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{bus: bus, responses: responses, logger: logger}
}

// Serve answers requests until ctx is done or the bus is closed.
func (r *Responder) Serve(ctx context.Context) error {
	for {
		f, err := r.bus.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, canbus.ErrClosed) {
				return nil
			}
			return err
		}
		if f.ID != RequestID || f.RTR || f.Len < 1 {
			continue
		}
		p := PGN(f.Data[0])
		payloads, ok := r.responses[p]
		if !ok {
			r.logger.Debug("no response for request", zap.Stringer("pgn", p))
			continue
		}
		for _, data := range payloads {
			resp, err := canbus.NewFrame(p.ResponseID(), data)
			if err != nil {
				return err
			}
			if err := r.bus.Send(ctx, resp); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
