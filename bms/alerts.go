package bms

// Alert names one bit of the MCUSUM alert word.
type Alert struct {
	Name string
	Mask uint16
}

// Alerts lists the decoded alert bits in output order.
var Alerts = []Alert{
	{Name: "BMS_FAULT_ILLEGAL_CONF", Mask: 0x0040},
	{Name: "BMS_FAULT_NOT_LOCKED", Mask: 0x0080},
	{Name: "BMS_FAULT_TH_UNDERTEMP", Mask: 0x0100},
	{Name: "BMS_FAULT_TH_OVERTEMP", Mask: 0x0200},
	{Name: "BMS_FAULT_CELL_LVC", Mask: 0x0400},
	{Name: "BMS_FAULT_CELL_HVC", Mask: 0x0800},
	{Name: "BMS_FAULT_THERM_CENSUS", Mask: 0x1000},
	{Name: "BMS_FAULT_CELL_CENSUS", Mask: 0x2000},
	{Name: "BMS_FAULT_HARDWARE", Mask: 0x4000},
}

// Flag is one decoded alert.
type Flag struct {
	Name string
	Set  bool
}

// DecodeAlerts expands the alert word into one flag per entry of Alerts.
func DecodeAlerts(raw uint16) AlertBitfield {
	flags := make([]Flag, len(Alerts))
	for i, a := range Alerts {
		flags[i] = Flag{Name: a.Name, Set: raw&a.Mask == a.Mask}
	}
	return AlertBitfield{Raw: raw, Flags: flags}
}
