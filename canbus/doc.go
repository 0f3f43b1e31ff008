// Package canbus provides the CAN transport used by the bridge.
//
// It includes:
//   - A core Frame type with validation and binary marshaling helpers
//   - A context-aware Bus interface
//   - An in-memory loopback bus for tests and dry runs
//   - A Linux SocketCAN driver (linux-only) via raw syscalls
//   - A zap-backed logging decorator and composable frame filters
package canbus
