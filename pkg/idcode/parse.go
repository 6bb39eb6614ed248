package idcode

// ParseIDCode splits a raw 32-bit IDCODE into its fields.
func ParseIDCode(raw uint32) IDCode {
	return IDCode{
		Raw:              raw,
		Version:          uint8(raw >> 28 & 0xF),
		PartNumber:       uint16(raw >> 12 & 0xFFFF),
		ManufacturerCode: uint16(raw >> 1 & 0x7FF),
		HasIDCode:        raw&1 == 1,
	}
}

// ParseDPIDR splits a raw DPIDR into its fields.
func ParseDPIDR(raw uint32) DPIDR {
	return DPIDR{
		Raw:        raw,
		Revision:   uint8(raw >> 28 & 0xF),
		PartNumber: uint8(raw >> 20 & 0xFF),
		Min:        raw>>16&1 == 1,
		Version:    uint8(raw >> 12 & 0xF),
		Designer:   uint16(raw >> 1 & 0x7FF),
	}
}

// JEP106 composes the 11-bit designer code from a bank number (1-based) and
// the identity code with its parity bit stripped.
func JEP106(bank int, id uint8) uint16 {
	return uint16(bank-1)<<7 | uint16(id&0x7F)
}
