// Command bmsbridge polls a battery management system over CAN and publishes
// its telemetry as line protocol.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
