//go:build !linux

package canbus

import "errors"

var errUnsupported = errors.New("canbus: interface control is only supported on linux")

// IsInterfaceUp is only available on Linux.
func IsInterfaceUp(name string) (bool, error) { return false, errUnsupported }

// SetInterfaceUp is only available on Linux.
func SetInterfaceUp(name string) error { return errUnsupported }

// SetInterfaceDown is only available on Linux.
func SetInterfaceDown(name string) error { return errUnsupported }

// ConfigureLinuxCANInterface is only available on Linux.
func ConfigureLinuxCANInterface(name string, opts InterfaceOptions) error { return errUnsupported }

// RequireRootOrCapNetAdmin returns err unchanged.
func RequireRootOrCapNetAdmin(err error) error { return err }
