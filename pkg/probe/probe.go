// Package probe defines the link contract the ADI engines drive. A link is
// either a JTAG scan chain (IR/DR shifts) or an SWD wire (bit sends and
// receives with turnaround handled by the caller). Both can insert idle clocks.
package probe

import (
	"errors"
	"fmt"
)

// Kind selects the physical protocol of a link.
type Kind uint8

const (
	KindNone Kind = iota
	KindJTAG
	KindSWD
)

func (k Kind) String() string {
	switch k {
	case KindJTAG:
		return "jtag"
	case KindSWD:
		return "swd"
	default:
		return "none"
	}
}

// ParseKind accepts "jtag" or "swd".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "jtag", "JTAG":
		return KindJTAG, nil
	case "swd", "SWD":
		return KindSWD, nil
	}
	return KindNone, fmt.Errorf("probe: unknown link kind %q", s)
}

// ErrClosed is returned by links used after Close.
var ErrClosed = errors.New("probe: link closed")

// Scan describes how the captured bits of one shift are judged. A zero Mask
// means the capture is don't-care. Store asks vector-generating links to keep
// the captured value instead of comparing it.
type Scan struct {
	Mask   uint64
	Expect uint64
	Store  bool
}

// DontCare is the zero Scan.
var DontCare = Scan{}

// Compare reports whether the scan carries a comparison.
func (s Scan) Compare() bool { return s.Mask != 0 && !s.Store }

// Matches reports whether v agrees with Expect under Mask.
func (s Scan) Matches(v uint64) bool {
	return v&s.Mask == s.Expect&s.Mask
}

func (s Scan) String() string {
	switch {
	case s.Store:
		return "store"
	case s.Mask == 0:
		return "x"
	default:
		return fmt.Sprintf("0x%X/0x%X", s.Expect, s.Mask)
	}
}

// Cycler inserts idle clocks on the link.
type Cycler interface {
	Cycle(n int) error
}

// JTAG is a scan chain with a single DAP TAP. Values are shifted LSB first.
type JTAG interface {
	Cycler
	WriteIR(value uint32, size int) error
	ReadIR(size int, scan Scan) (uint32, error)
	WriteDR(value uint64, size int, scan Scan) error
	ReadDR(value uint64, size int, scan Scan) (uint64, error)
}

// SWD is a serial wire link. SendData drives bits from the host, GetData
// samples bits driven by the target; both go LSB first. DIOToZero clocks with
// SWDIO held low.
type SWD interface {
	Cycler
	SendData(value uint64, bits int) error
	GetData(bits int, scan Scan) (uint64, error)
	DIOToZero(cycles int) error
}

// Mask returns a mask of the low n bits.
func Mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	if n <= 0 {
		return 0
	}
	return 1<<uint(n) - 1
}
