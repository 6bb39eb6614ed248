package probe

import (
	"errors"
	"fmt"
)

// AdapterInfo describes a physical or virtual debug adapter.
type AdapterInfo struct {
	Name         string
	Vendor       string
	Model        string
	SerialNumber string
	Firmware     string
	MinFrequency int // Hertz
	MaxFrequency int // Hertz
	SupportsSWD  bool
	SupportsJTAG bool
	Notes        string
}

// Adapter shifts raw TMS/TDI streams through a TAP. The buffers hold one bit
// per clock, LSB first within each byte; TDO comes back the same way.
type Adapter interface {
	Info() (AdapterInfo, error)
	ShiftIR(tms, tdi []byte, bits int) (tdo []byte, err error)
	ShiftDR(tms, tdi []byte, bits int) (tdo []byte, err error)
	ResetTAP(hard bool) error
	SetSpeed(hz int) error
}

// ErrNotImplemented lets backends signal a missing capability.
var ErrNotImplemented = errors.New("probe: not implemented")

// ValidateShiftBuffers checks that non-empty TMS/TDI buffers cover bits clocks
// and returns the byte length needed for them.
func ValidateShiftBuffers(tms, tdi []byte, bits int) (int, error) {
	if bits <= 0 {
		return 0, fmt.Errorf("probe: bits must be positive, got %d", bits)
	}
	required := (bits + 7) / 8
	if len(tms) > 0 && len(tms) < required {
		return 0, fmt.Errorf("probe: tms buffer too short, need %d bytes", required)
	}
	if len(tdi) > 0 && len(tdi) < required {
		return 0, fmt.Errorf("probe: tdi buffer too short, need %d bytes", required)
	}
	return required, nil
}

// PackBits packs one bool per clock into LSB-first bytes.
func PackBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackBits expands LSB-first bytes into n bools.
func UnpackBits(data []byte, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n && i/8 < len(data); i++ {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

// BitAt reports bit i of an LSB-first buffer.
func BitAt(data []byte, i int) bool {
	if i < 0 || i/8 >= len(data) {
		return false
	}
	return data[i/8]&(1<<uint(i%8)) != 0
}
