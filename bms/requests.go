package bms

import (
	"fmt"
	"time"

	"github.com/evtelemetry/bmsbridge/canbus"
)

// RequestDescriptor is the 4-byte payload of a read request for one PGN.
type RequestDescriptor struct {
	Payload [4]byte
}

// Request builds the descriptor requesting p.
func Request(p PGN) RequestDescriptor {
	return RequestDescriptor{Payload: [4]byte{byte(p), 0xFF, 0x00, 0x00}}
}

// PGN returns the requested parameter group.
func (d RequestDescriptor) PGN() PGN { return PGN(d.Payload[0]) }

// Frame returns the request frame sent on RequestID.
func (d RequestDescriptor) Frame() canbus.Frame {
	return canbus.MustFrame(RequestID, d.Payload[:])
}

func (d RequestDescriptor) String() string {
	return fmt.Sprintf("%s[% X]", d.PGN(), d.Payload)
}

// FastSet is requested every Fast period.
var FastSet = [...]RequestDescriptor{
	Request(PGNPackSummary),
	Request(PGNCellVoltageSum),
}

// SlowSet is requested once per Slow period.
var SlowSet = [...]RequestDescriptor{
	Request(PGNMCUSummary),
	Request(PGNThermistorSum),
	Request(PGNSOCSummary),
	Request(PGNCellGroup1CV),
	Request(PGNCellGroup2CV),
	Request(PGNCellGroup1TH),
}

// Cadence selects one of the two request tables.
type Cadence uint8

const (
	Fast Cadence = iota
	Slow
)

// Default request periods.
const (
	DefaultFastPeriod = 100 * time.Millisecond
	DefaultSlowPeriod = 1000 * time.Millisecond
	DefaultSpacing    = 5 * time.Millisecond
)

// DefaultPeriod returns the compiled-in period of the cadence. The period a
// Scheduler actually uses comes from SchedulerConfig.Period.
func (c Cadence) DefaultPeriod() time.Duration {
	if c == Slow {
		return DefaultSlowPeriod
	}
	return DefaultFastPeriod
}

func (c Cadence) String() string {
	switch c {
	case Fast:
		return "fast"
	case Slow:
		return "slow"
	}
	return fmt.Sprintf("cadence(%d)", uint8(c))
}
