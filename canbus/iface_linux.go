//go:build linux

package canbus

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// Linux network interface helpers.
//
// Bringing interfaces up/down or changing the bitrate requires CAP_NET_ADMIN.
// Without it the calls return EPERM, wrapped by RequireRootOrCapNetAdmin.

func interfaceFlags(name string) (uint16, error) {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return 0, fmt.Errorf("canbus: invalid interface name %q: %w", name, err)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(fd)
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return 0, err
	}
	return ifr.Uint16(), nil
}

func setInterfaceFlags(name string, flags uint16) error {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return fmt.Errorf("canbus: invalid interface name %q: %w", name, err)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	ifr.SetUint16(flags)
	return unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr)
}

// IsInterfaceUp returns true if the Linux network interface has IFF_UP set.
func IsInterfaceUp(name string) (bool, error) {
	flags, err := interfaceFlags(name)
	if err != nil {
		return false, err
	}
	return flags&unix.IFF_UP != 0, nil
}

// SetInterfaceUp sets IFF_UP on the given interface. Requires CAP_NET_ADMIN.
func SetInterfaceUp(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return err
	}
	if flags&unix.IFF_UP != 0 {
		return nil
	}
	return RequireRootOrCapNetAdmin(setInterfaceFlags(name, flags|unix.IFF_UP))
}

// SetInterfaceDown clears IFF_UP on the given interface. Requires CAP_NET_ADMIN.
func SetInterfaceDown(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return err
	}
	if flags&unix.IFF_UP == 0 {
		return nil
	}
	return RequireRootOrCapNetAdmin(setInterfaceFlags(name, flags&^unix.IFF_UP))
}

// RequireRootOrCapNetAdmin maps EPERM to a clearer error advising to grant
// CAP_NET_ADMIN to the binary.
func RequireRootOrCapNetAdmin(err error) error {
	if errors.Is(err, unix.EPERM) {
		return fmt.Errorf("operation requires CAP_NET_ADMIN (or root): %w", err)
	}
	return err
}

// ConfigureLinuxCANInterface applies the non-zero options through the system
// `ip` tool (iproute2). Bitrate changes require the interface to be down, so
// the interface is taken down first when any CAN setting is applied.
func ConfigureLinuxCANInterface(name string, opts InterfaceOptions) error {
	if opts.Bitrate == 0 && opts.RestartMs == 0 {
		return nil
	}
	if err := SetInterfaceDown(name); err != nil {
		return err
	}
	args := []string{"link", "set", "dev", name, "type", "can"}
	if opts.Bitrate != 0 {
		args = append(args, "bitrate", strconv.FormatUint(uint64(opts.Bitrate), 10))
	}
	if opts.RestartMs != 0 {
		args = append(args, "restart-ms", strconv.FormatUint(uint64(opts.RestartMs), 10))
	}
	cmd := exec.Command("ip", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return RequireRootOrCapNetAdmin(fmt.Errorf("ip link set type can failed: %w; output: %s", err, string(out)))
	}
	return nil
}
