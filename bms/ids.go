package bms

import "fmt"

// PGN identifies a parameter group on the BMS.
type PGN uint8

const (
	PGNMCUSummary     PGN = 0x20 // charge kWh, charger/plug state, alerts
	PGNPackSummary    PGN = 0x21
	PGNCellVoltageSum PGN = 0x22
	PGNThermistorSum  PGN = 0x23
	PGNSOCSummary     PGN = 0x24
	PGNCellGroup1CV   PGN = 0xA0
	PGNCellGroup2CV   PGN = 0xA1
	PGNCellGroup1TH   PGN = 0xC0
)

const (
	// RequestID is the extended identifier of every outbound read request.
	RequestID uint32 = 0x14EBD0D8

	// ResponseBase and ResponseMask describe the response identifier space:
	// 0x14FF<pgn>D0.
	ResponseBase uint32 = 0x14FF00D0
	ResponseMask uint32 = 0x1FFF00FF
)

// ResponseID returns the identifier the BMS answers a request for p with.
func (p PGN) ResponseID() uint32 {
	return ResponseBase | uint32(p)<<8
}

func (p PGN) String() string {
	switch p {
	case PGNMCUSummary:
		return "MCUSUM"
	case PGNPackSummary:
		return "PACKSUM"
	case PGNCellVoltageSum:
		return "CVSUM"
	case PGNThermistorSum:
		return "THSUM"
	case PGNSOCSummary:
		return "SOCSUM"
	case PGNCellGroup1CV:
		return "CELLG1_CV"
	case PGNCellGroup2CV:
		return "CELLG2_CV"
	case PGNCellGroup1TH:
		return "CELLG1_TH"
	}
	return fmt.Sprintf("PGN(0x%02X)", uint8(p))
}

// PGNOf extracts the parameter group from a response identifier.
func PGNOf(id uint32) (PGN, bool) {
	if id&ResponseMask != ResponseBase {
		return 0, false
	}
	return PGN(id >> 8), true
}
