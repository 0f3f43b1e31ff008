package bridge

import "github.com/evtelemetry/bmsbridge/bms"

// Observer receives bridge events, typically to feed metrics. Methods are
// called from the scheduler and receive goroutines and must not block.
type Observer interface {
	FrameReceived()
	// FrameIgnored is called for frames that pass no decoder or decode to
	// no records.
	FrameIgnored()
	RecordDecoded(kind bms.Kind)
	DecodeFailed()
	ReceiveFailed()
	Published(err error)
	BatchIssued(c bms.Cadence, requests int)
}

type nopObserver struct{}

func (nopObserver) FrameReceived()               {}
func (nopObserver) FrameIgnored()                {}
func (nopObserver) RecordDecoded(bms.Kind)       {}
func (nopObserver) DecodeFailed()                {}
func (nopObserver) ReceiveFailed()               {}
func (nopObserver) Published(error)              {}
func (nopObserver) BatchIssued(bms.Cadence, int) {}

// NopObserver returns an Observer that ignores every event.
func NopObserver() Observer { return nopObserver{} }
