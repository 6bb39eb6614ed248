package deviceinfo

import "github.com/OpenTraceLab/OpenTraceADI/pkg/idcode"

// DeviceInfo describes a debug port identified by its IDCODE or DPIDR.
type DeviceInfo struct {
	Manufacturer idcode.Manufacturer

	Name        string // "SW-DP"
	Description string // "Cortex-M3/M4 SW-DP"

	// Transport is "jtag" or "swd".
	Transport string
	// ADIVersion is 5 or 6.
	ADIVersion int
	// IRLength is the JTAG-DP instruction length, zero for SW-DPs.
	IRLength int
}
