//go:build !linux

package canbus

import "errors"

// DialSocketCAN is only available on Linux.
func DialSocketCAN(iface string) (Bus, error) {
	return nil, errors.New("canbus: socketcan is only supported on linux")
}
