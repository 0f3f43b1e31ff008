package canbus

// InterfaceOptions controls CAN interface parameters applied before the
// interface is brought up. Zero values leave the setting unchanged.
type InterfaceOptions struct {
	// Bitrate is the arbitration bit-rate in bits per second (e.g. 250000, 500000).
	Bitrate uint32

	// RestartMs is the automatic bus-off recovery delay in milliseconds.
	RestartMs uint32
}

// BringUp applies opts to the interface and sets it up.
func BringUp(name string, opts InterfaceOptions) error {
	if err := ConfigureLinuxCANInterface(name, opts); err != nil {
		return err
	}
	return SetInterfaceUp(name)
}
