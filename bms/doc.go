// Package bms implements the battery-management side of the bridge on top of
// the canbus primitives.
//
// The BMS answers read requests sent to RequestID with one response frame per
// parameter group (PGN). This package covers:
//   - Byte composition helpers for little-endian words and signed temperatures
//   - The identifier catalogue and the fast/slow request tables
//   - A table-driven decoder turning response frames into typed Records
//   - Influx line-protocol formatting of Records
//   - A Scheduler that issues the request tables at two cadences
//
// Requests carry no correlation id. Responses are attributed by identifier
// only, which assumes a single requester on the bus.
package bms
