package bms

import (
	"errors"
	"fmt"
)

// ErrTruncatedPayload matches any DecodeError caused by a short payload.
var ErrTruncatedPayload = errors.New("bms: truncated payload")

// DecodeReason classifies a DecodeError.
type DecodeReason uint8

const (
	TruncatedPayload DecodeReason = iota + 1
)

func (r DecodeReason) String() string {
	if r == TruncatedPayload {
		return "truncated payload"
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// DecodeError reports a frame that could not be decoded. The frame is
// discarded; decoding of later frames is unaffected.
type DecodeError struct {
	ID     uint32
	Reason DecodeReason
	// Need is the payload length the failing read required; Len is what the
	// frame carried.
	Need int
	Len  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bms: decode 0x%08X: %s (need %d bytes, have %d)", e.ID, e.Reason, e.Need, e.Len)
}

func (e *DecodeError) Unwrap() error {
	if e.Reason == TruncatedPayload {
		return ErrTruncatedPayload
	}
	return nil
}

// TransmitError reports a request that could not be sent. It is fatal to the
// scheduler.
type TransmitError struct {
	Cadence    Cadence
	Descriptor RequestDescriptor
	Err        error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("bms: transmit %s request %s: %v", e.Cadence, e.Descriptor, e.Err)
}

func (e *TransmitError) Unwrap() error { return e.Err }
