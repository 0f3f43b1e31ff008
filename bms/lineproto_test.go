package bms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "pack summary",
			rec:  PackSummary{Voltage: 10, Current: -1},
			want: "power,system=pack pack_voltage=10,pack_current=-1",
		},
		{
			name: "cell group",
			rec:  CellGroupVoltages{CellNumbers: []int{7, 8, 9}, Voltages: []float64{1, 1.0016, 1.0032}},
			want: "power,system=pack cv_07=1,cv_08=1.0016,cv_09=1.0032",
		},
		{
			name: "cell voltage summary",
			rec:  CellVoltageSummary{Low: 3.304, Mean: 3.3312, High: 3.3584},
			want: "power,system=cells cell_voltage_low=3.304,cell_voltage_mean=3.3312,cell_voltage_high=3.3584",
		},
		{
			name: "charge summary quotes strings",
			rec:  ChargeSummary{ChargeKWh: 12.34, ChargeState: ChargeTopBalance, PlugState: PlugWaitingForDisc},
			want: `power,system=mcu charge_kwh=12.34,charge_state="Top Balance",charge_plug_state="Waiting For Disc"`,
		},
		{
			name: "unknown states",
			rec:  ChargeSummary{ChargeState: 99, PlugState: 99},
			want: `power,system=mcu charge_kwh=0,charge_state="N/A",charge_plug_state="N/A"`,
		},
		{
			name: "thermistors",
			rec:  ThermistorSummary{Count: 5, TempLow: -10, TempHigh: 30, AlarmLow: -20, AlarmHigh: 55},
			want: "power,system=pack thermistor_count=5,thermistor_temp_low=-10,thermistor_temp_high=30,thermistor_temp_low_alarm=-20,thermistor_temp_high_alarm=55",
		},
		{
			name: "soc",
			rec:  SocSummary{SOC: 87, KWhCurrent: 50.5, KWhMax: 60},
			want: "power,system=pack soc=87,pack_kwh_current=50.5,pack_kwh_max=60",
		},
		{
			name: "aux thermistors",
			rec:  AuxThermistorPair{ThA: 21, ThB: -2},
			want: "power,system=pack th_04=21,th_05=-2",
		},
		{
			name: "alerts as 1/0",
			rec:  DecodeAlerts(0x0440),
			want: "power,system=bms BMS_FAULT_ILLEGAL_CONF=1,BMS_FAULT_NOT_LOCKED=0,BMS_FAULT_TH_UNDERTEMP=0," +
				"BMS_FAULT_TH_OVERTEMP=0,BMS_FAULT_CELL_LVC=1,BMS_FAULT_CELL_HVC=0,BMS_FAULT_THERM_CENSUS=0," +
				"BMS_FAULT_CELL_CENSUS=0,BMS_FAULT_HARDWARE=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Line(tt.rec))
		})
	}
}

func TestLiveValues(t *testing.T) {
	live := ChargeSummary{ChargeKWh: 1.5, ChargeState: ChargeFloat, PlugState: PlugLocked}.Live()
	got := map[string]string{}
	for _, f := range live {
		got[f.Name] = LiveValue(f)
	}
	assert.Equal(t, map[string]string{
		"charge_kwh":        "1.5",
		"charge_state":      "Float",
		"charge_plug_state": "Locked",
	}, got)

	assert.Empty(t, DecodeAlerts(0).Live())
	assert.Empty(t, CellGroupVoltages{}.Live())
	assert.Equal(t, []Field{{"pack_current", -1.0}}, PackSummary{Voltage: 10, Current: -1}.Live())
}

func TestFormatValue_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `"a\"b\\c"`, formatValue(`a"b\c`, true))
	assert.Equal(t, `a"b`, formatValue(`a"b`, false))
	assert.Equal(t, "7", formatValue(7, true))
}
