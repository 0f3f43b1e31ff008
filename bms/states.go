package bms

// ChargeState is the charge controller state reported in MCUSUM byte 4.
type ChargeState uint8

const (
	ChargeStandby    ChargeState = 0
	ChargeStartup    ChargeState = 1
	ChargeWarmdown   ChargeState = 2
	ChargeBulk       ChargeState = 10
	ChargeFinish     ChargeState = 11
	ChargeFloat      ChargeState = 12
	ChargeTopBalance ChargeState = 13
)

func (s ChargeState) String() string {
	switch s {
	case ChargeStandby:
		return "Standby"
	case ChargeStartup:
		return "Startup"
	case ChargeWarmdown:
		return "Warmdown"
	case ChargeBulk:
		return "Bulk"
	case ChargeFinish:
		return "Finish"
	case ChargeFloat:
		return "Float"
	case ChargeTopBalance:
		return "Top Balance"
	}
	return "N/A"
}

// PlugState is the charge plug state reported in MCUSUM byte 5.
type PlugState uint8

const (
	PlugUnknown        PlugState = 0
	PlugDisconnected   PlugState = 1
	PlugConnected      PlugState = 2
	PlugLocked         PlugState = 3
	PlugWaitingForDisc PlugState = 4
	PlugActive         PlugState = 5
)

func (s PlugState) String() string {
	switch s {
	case PlugUnknown:
		return "Unknown"
	case PlugDisconnected:
		return "Disconnected"
	case PlugConnected:
		return "Connected"
	case PlugLocked:
		return "Locked"
	case PlugWaitingForDisc:
		return "Waiting For Disc"
	case PlugActive:
		return "Active"
	}
	return "N/A"
}
