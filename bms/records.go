package bms

import "fmt"

// Namespace is the measurement namespace a record is published under.
type Namespace string

const (
	NamespacePack  Namespace = "pack"
	NamespaceBMS   Namespace = "bms"
	NamespaceCells Namespace = "cells"
	NamespaceMCU   Namespace = "mcu"
)

// Kind tags the concrete Record type.
type Kind uint8

const (
	KindPackSummary Kind = iota + 1
	KindCellVoltageSummary
	KindCellGroupVoltages
	KindThermistorSummary
	KindSocSummary
	KindChargeSummary
	KindAlertBitfield
	KindAuxThermistorPair
)

var kindNames = map[Kind]string{
	KindPackSummary:        "pack_summary",
	KindCellVoltageSummary: "cell_voltage_summary",
	KindCellGroupVoltages:  "cell_group_voltages",
	KindThermistorSummary:  "thermistor_summary",
	KindSocSummary:         "soc_summary",
	KindChargeSummary:      "charge_summary",
	KindAlertBitfield:      "alert_bitfield",
	KindAuxThermistorPair:  "aux_thermistor_pair",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Field is one named value of a record. Value is a float64, int64, string
// or bool.
type Field struct {
	Name  string
	Value any
}

// Record is one decoded unit of telemetry.
type Record interface {
	Kind() Kind
	Namespace() Namespace
	// Fields lists the values in publish order.
	Fields() []Field
	// Live lists the values mirrored to per-value dashboard topics.
	Live() []Field
}

// PackSummary is PACKSUM: pack voltage (V) and signed current (A).
type PackSummary struct {
	Voltage float64
	Current float64
}

func (PackSummary) Kind() Kind           { return KindPackSummary }
func (PackSummary) Namespace() Namespace { return NamespacePack }

func (r PackSummary) Fields() []Field {
	return []Field{{"pack_voltage", r.Voltage}, {"pack_current", r.Current}}
}

func (r PackSummary) Live() []Field {
	return []Field{{"pack_current", r.Current}}
}

// CellVoltageSummary is CVSUM: lowest, mean and highest cell voltage (V).
type CellVoltageSummary struct {
	Low  float64
	Mean float64
	High float64
}

func (CellVoltageSummary) Kind() Kind           { return KindCellVoltageSummary }
func (CellVoltageSummary) Namespace() Namespace { return NamespaceCells }

func (r CellVoltageSummary) Fields() []Field {
	return []Field{
		{"cell_voltage_low", r.Low},
		{"cell_voltage_mean", r.Mean},
		{"cell_voltage_high", r.High},
	}
}

func (r CellVoltageSummary) Live() []Field {
	return []Field{{"cell_voltage_mean", r.Mean}}
}

// CellGroupVoltages holds up to three cell voltages from one cell-group frame.
// CellNumbers are 1-based logical cell indexes.
type CellGroupVoltages struct {
	Group       int
	GroupIndex  int
	CellNumbers []int
	Voltages    []float64
}

func (CellGroupVoltages) Kind() Kind           { return KindCellGroupVoltages }
func (CellGroupVoltages) Namespace() Namespace { return NamespacePack }

func (r CellGroupVoltages) Fields() []Field {
	fields := make([]Field, len(r.CellNumbers))
	for i, n := range r.CellNumbers {
		fields[i] = Field{fmt.Sprintf("cv_%02d", n), r.Voltages[i]}
	}
	return fields
}

func (CellGroupVoltages) Live() []Field { return nil }

// ThermistorSummary is THSUM. Temperatures are °C.
type ThermistorSummary struct {
	Count     uint8
	TempLow   int8
	TempHigh  int8
	AlarmLow  int8
	AlarmHigh int8
}

func (ThermistorSummary) Kind() Kind           { return KindThermistorSummary }
func (ThermistorSummary) Namespace() Namespace { return NamespacePack }

func (r ThermistorSummary) Fields() []Field {
	return []Field{
		{"thermistor_count", int64(r.Count)},
		{"thermistor_temp_low", int64(r.TempLow)},
		{"thermistor_temp_high", int64(r.TempHigh)},
		{"thermistor_temp_low_alarm", int64(r.AlarmLow)},
		{"thermistor_temp_high_alarm", int64(r.AlarmHigh)},
	}
}

func (r ThermistorSummary) Live() []Field {
	return []Field{
		{"pack_temp_low", int64(r.TempLow)},
		{"pack_temp_high", int64(r.TempHigh)},
	}
}

// SocSummary is SOCSUM: state of charge (%) and remaining/total capacity (kWh).
type SocSummary struct {
	SOC        uint8
	KWhCurrent float64
	KWhMax     float64
}

func (SocSummary) Kind() Kind           { return KindSocSummary }
func (SocSummary) Namespace() Namespace { return NamespacePack }

func (r SocSummary) Fields() []Field {
	return []Field{
		{"soc", int64(r.SOC)},
		{"pack_kwh_current", r.KWhCurrent},
		{"pack_kwh_max", r.KWhMax},
	}
}

func (r SocSummary) Live() []Field { return r.Fields() }

// ChargeSummary is the charger part of MCUSUM.
type ChargeSummary struct {
	ChargeKWh   float64
	ChargeState ChargeState
	PlugState   PlugState
}

func (ChargeSummary) Kind() Kind           { return KindChargeSummary }
func (ChargeSummary) Namespace() Namespace { return NamespaceMCU }

func (r ChargeSummary) Fields() []Field {
	return []Field{
		{"charge_kwh", r.ChargeKWh},
		{"charge_state", r.ChargeState.String()},
		{"charge_plug_state", r.PlugState.String()},
	}
}

func (r ChargeSummary) Live() []Field { return r.Fields() }

// AlertBitfield is the alert word of MCUSUM expanded into named flags.
type AlertBitfield struct {
	Raw   uint16
	Flags []Flag
}

func (AlertBitfield) Kind() Kind           { return KindAlertBitfield }
func (AlertBitfield) Namespace() Namespace { return NamespaceBMS }

func (r AlertBitfield) Fields() []Field {
	fields := make([]Field, len(r.Flags))
	for i, f := range r.Flags {
		fields[i] = Field{f.Name, f.Set}
	}
	return fields
}

func (AlertBitfield) Live() []Field { return nil }

// Active returns the names of the set flags.
func (r AlertBitfield) Active() []string {
	var names []string
	for _, f := range r.Flags {
		if f.Set {
			names = append(names, f.Name)
		}
	}
	return names
}

// AuxThermistorPair carries thermistors 4 and 5 from CELLG1_TH block 0.
type AuxThermistorPair struct {
	ThA int8
	ThB int8
}

func (AuxThermistorPair) Kind() Kind           { return KindAuxThermistorPair }
func (AuxThermistorPair) Namespace() Namespace { return NamespacePack }

func (r AuxThermistorPair) Fields() []Field {
	return []Field{{"th_04", int64(r.ThA)}, {"th_05", int64(r.ThB)}}
}

func (r AuxThermistorPair) Live() []Field {
	return []Field{{"pack_th_04", int64(r.ThA)}, {"pack_th_05", int64(r.ThB)}}
}
