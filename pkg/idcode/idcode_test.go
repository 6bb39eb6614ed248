package idcode

import "testing"

func TestParseIDCode(t *testing.T) {
	id := ParseIDCode(0x4BA00477)
	if id.Version != 4 || id.PartNumber != 0xBA00 || id.ManufacturerCode != 0x23B || !id.HasIDCode {
		t.Errorf("ParseIDCode = %+v", id)
	}
	m, ok := LookupManufacturer(id.ManufacturerCode)
	if !ok || m.Abbreviation != "ARM" || m.Code != 0x23B {
		t.Errorf("manufacturer = %+v, %v", m, ok)
	}
}

func TestParseDPIDR(t *testing.T) {
	tests := []struct {
		raw     uint32
		part    uint8
		version uint8
		rev     uint8
		min     bool
	}{
		{0x2BA01477, 0xBA, 1, 2, false},
		// Cortex-M0+ parts are MINDP implementations
		{0x0BC11477, 0xBC, 1, 0, true},
		{0x0BC12477, 0xBC, 2, 0, true},
		{0x6BA02477, 0xBA, 2, 6, false},
		{0x0BB11477, 0xBB, 1, 0, true},
	}
	for _, tt := range tests {
		d := ParseDPIDR(tt.raw)
		if d.PartNumber != tt.part || d.Version != tt.version || d.Revision != tt.rev || d.Min != tt.min || d.Designer != 0x23B {
			t.Errorf("ParseDPIDR(0x%08X) = %+v", tt.raw, d)
		}
	}
	if !ParseDPIDR(0x2BA01477 | 1<<16).Min || ParseDPIDR(0x0BC11477 &^ (1 << 16)).Min {
		t.Errorf("MIN bit not decoded")
	}
}

func TestJEP106(t *testing.T) {
	tests := map[uint16]string{
		0x23B: "ARM",
		0x020: "STM",
		0x015: "NXP",
		0x244: "Nordic",
	}
	for code, want := range tests {
		m, ok := LookupManufacturer(code)
		if !ok || m.Abbreviation != want {
			t.Errorf("LookupManufacturer(0x%03X) = %+v, %v; want %s", code, m, ok, want)
		}
	}
	if m, ok := LookupManufacturer(0x7FF); ok || m.Abbreviation != "Unknown" {
		t.Errorf("unknown code = %+v, %v", m, ok)
	}
}
