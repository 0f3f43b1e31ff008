package bms

import (
	"sort"

	"github.com/evtelemetry/bmsbridge/canbus"
)

const (
	// CellsPerGroup is the number of cells reported under one cell-group PGN.
	CellsPerGroup = 10

	cellsPerFrame = 3
)

// Divisors applied after byte composition.
const (
	packVoltageScale = 10
	packCurrentScale = 10
	cellVoltageScale = 10000
	chargeKWhScale   = 100
	packKWhScale     = 10
)

// buildFunc turns the values read for fields into records. It may read
// further dynamic fields through r.
type buildFunc func(r *payloadReader, v []float64) []Record

// decoderEntry describes how one response identifier is decoded. Adding a
// PGN means adding a row to decoders.
type decoderEntry struct {
	pgn    PGN
	kinds  []Kind
	fields []fieldSpec
	build  buildFunc
}

var decoders = map[uint32]decoderEntry{
	PGNCellGroup1CV.ResponseID(): {
		pgn:   PGNCellGroup1CV,
		kinds: []Kind{KindCellGroupVoltages},
		build: buildCellGroup(0),
	},
	PGNCellGroup2CV.ResponseID(): {
		pgn:   PGNCellGroup2CV,
		kinds: []Kind{KindCellGroupVoltages},
		build: buildCellGroup(1),
	},
	PGNMCUSummary.ResponseID(): {
		pgn:   PGNMCUSummary,
		kinds: []Kind{KindAlertBitfield, KindChargeSummary},
		fields: []fieldSpec{
			{offset: 2, enc: encU16, scale: chargeKWhScale},
			{offset: 4, enc: encU8},
			{offset: 5, enc: encU8},
			{offset: 6, enc: encU16},
		},
		build: func(_ *payloadReader, v []float64) []Record {
			return []Record{
				DecodeAlerts(uint16(v[3])),
				ChargeSummary{
					ChargeKWh:   v[0],
					ChargeState: ChargeState(v[1]),
					PlugState:   PlugState(v[2]),
				},
			}
		},
	},
	PGNPackSummary.ResponseID(): {
		pgn:   PGNPackSummary,
		kinds: []Kind{KindPackSummary},
		fields: []fieldSpec{
			{offset: 2, enc: encU16, scale: packVoltageScale},
			{offset: 4, enc: encI16, scale: packCurrentScale},
		},
		build: func(_ *payloadReader, v []float64) []Record {
			return []Record{PackSummary{Voltage: v[0], Current: v[1]}}
		},
	},
	PGNCellVoltageSum.ResponseID(): {
		pgn:   PGNCellVoltageSum,
		kinds: []Kind{KindCellVoltageSummary},
		fields: []fieldSpec{
			{offset: 2, enc: encU16, scale: cellVoltageScale},
			{offset: 4, enc: encU16, scale: cellVoltageScale},
			{offset: 6, enc: encU16, scale: cellVoltageScale},
		},
		build: func(_ *payloadReader, v []float64) []Record {
			return []Record{CellVoltageSummary{Low: v[0], Mean: v[1], High: v[2]}}
		},
	},
	PGNThermistorSum.ResponseID(): {
		pgn:   PGNThermistorSum,
		kinds: []Kind{KindThermistorSummary},
		fields: []fieldSpec{
			{offset: 1, enc: encU8},
			{offset: 2, enc: encI8},
			{offset: 3, enc: encI8},
			{offset: 6, enc: encI8},
			{offset: 7, enc: encI8},
		},
		build: func(_ *payloadReader, v []float64) []Record {
			return []Record{ThermistorSummary{
				Count:     uint8(v[0]),
				TempLow:   int8(v[1]),
				TempHigh:  int8(v[2]),
				AlarmLow:  int8(v[3]),
				AlarmHigh: int8(v[4]),
			}}
		},
	},
	PGNSOCSummary.ResponseID(): {
		pgn:   PGNSOCSummary,
		kinds: []Kind{KindSocSummary},
		fields: []fieldSpec{
			{offset: 1, enc: encU8},
			{offset: 2, enc: encU16, scale: packKWhScale},
			{offset: 4, enc: encU16, scale: packKWhScale},
		},
		build: func(_ *payloadReader, v []float64) []Record {
			return []Record{SocSummary{SOC: uint8(v[0]), KWhCurrent: v[1], KWhMax: v[2]}}
		},
	},
	PGNCellGroup1TH.ResponseID(): {
		pgn:   PGNCellGroup1TH,
		kinds: []Kind{KindAuxThermistorPair},
		build: func(r *payloadReader, _ []float64) []Record {
			// Only block 0 carries the auxiliary pair.
			if r.u8(0) != 0 {
				return nil
			}
			rec := AuxThermistorPair{ThA: r.i8(6), ThB: r.i8(7)}
			if r.err != nil {
				return nil
			}
			return []Record{rec}
		},
	},
}

// buildCellGroup decodes one cell-group frame: byte 0 is the frame index
// within the group, voltages follow as words from byte 2. Cells past the end
// of the group are not emitted.
func buildCellGroup(group int) buildFunc {
	return func(r *payloadReader, _ []float64) []Record {
		index := int(r.u8(0))
		groupBase := group * CellsPerGroup
		base := groupBase + index*cellsPerFrame + 1

		rec := CellGroupVoltages{Group: group, GroupIndex: index}
		for i := 0; i < cellsPerFrame; i++ {
			cell := base + i
			if cell-groupBase > CellsPerGroup {
				break
			}
			v := float64(r.u16(2+2*i)) / cellVoltageScale
			if r.err != nil {
				return nil
			}
			rec.CellNumbers = append(rec.CellNumbers, cell)
			rec.Voltages = append(rec.Voltages, v)
		}
		if len(rec.CellNumbers) == 0 {
			return nil
		}
		return []Record{rec}
	}
}

// Decode turns a response frame into records. Unknown identifiers yield no
// records and no error. A payload too short for the fields of its identifier
// yields a *DecodeError matching ErrTruncatedPayload.
func Decode(f canbus.Frame) ([]Record, error) {
	e, ok := decoders[f.ID]
	if !ok {
		return nil, nil
	}
	r := &payloadReader{id: f.ID, b: f.Payload()}
	vals := make([]float64, len(e.fields))
	for i, s := range e.fields {
		vals[i] = s.read(r)
	}
	if r.err != nil {
		return nil, r.err
	}
	recs := e.build(r, vals)
	if r.err != nil {
		return nil, r.err
	}
	return recs, nil
}

// Lookup reports the PGN and record kinds decoded for a response identifier.
func Lookup(id uint32) (PGN, []Kind, bool) {
	e, ok := decoders[id]
	if !ok {
		return 0, nil, false
	}
	return e.pgn, e.kinds, true
}

// ResponseIDs returns the decoded identifiers in ascending order.
func ResponseIDs() []uint32 {
	ids := make([]uint32, 0, len(decoders))
	for id := range decoders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
