package idcode

import "fmt"

// IDCode is a parsed IEEE 1149.1 IDCODE as captured through a JTAG-DP's
// IDCODE instruction.
type IDCode struct {
	Raw              uint32
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1] JEP106
	HasIDCode        bool   // bit 0 == 1
}

func (id IDCode) String() string {
	m, _ := LookupManufacturer(id.ManufacturerCode)
	return fmt.Sprintf("0x%08X (Mfg: %s, Part: 0x%04X, Ver: %d)",
		id.Raw, m.Name, id.PartNumber, id.Version)
}

// DPIDR is a parsed Debug Port ID register, as read from DP address 0x0 over
// SWD (or JTAG-DP v2 and later).
type DPIDR struct {
	Raw uint32
	// Revision is [31:28].
	Revision uint8
	// PartNumber is [27:20].
	PartNumber uint8
	// Min reports the minimal DP implementation, bit 16.
	Min bool
	// Version is the DP architecture version, [15:12].
	Version  uint8
	Designer uint16 // [11:1] JEP106
}

func (d DPIDR) String() string {
	m, _ := LookupManufacturer(d.Designer)
	return fmt.Sprintf("0x%08X (Designer: %s, Part: 0x%02X, DPv%d, Rev: %d)",
		d.Raw, m.Name, d.PartNumber, d.Version, d.Revision)
}

// Manufacturer is a JEP106 manufacturer entry. Code is the 11-bit IDCODE
// form: continuation count in bits [10:7], identity in bits [6:0].
type Manufacturer struct {
	Code         uint16
	Name         string
	Abbreviation string
}
