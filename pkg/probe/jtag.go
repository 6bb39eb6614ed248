package probe

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/tap"
)

// ShiftJTAG implements JTAG on top of a raw Adapter. It tracks the TAP state
// locally, parks in Run-Test/Idle after every scan and realigns the
// controller with five TMS=1 clocks before its first use.
type ShiftJTAG struct {
	adapter Adapter
	tap     *tap.Controller
	synced  bool
}

// NewShiftJTAG wraps an adapter.
func NewShiftJTAG(a Adapter) *ShiftJTAG {
	return &ShiftJTAG{adapter: a, tap: tap.NewController()}
}

// Adapter returns the wrapped adapter.
func (j *ShiftJTAG) Adapter() Adapter { return j.adapter }

// Reset asks the adapter for a TAP reset and forces the local model to
// Test-Logic-Reset.
func (j *ShiftJTAG) Reset(hard bool) error {
	if err := j.adapter.ResetTAP(hard); err != nil && err != ErrNotImplemented {
		return fmt.Errorf("probe: reset tap: %w", err)
	}
	j.tap.Reset()
	j.synced = true
	return nil
}

func (j *ShiftJTAG) prefix() []bool {
	if j.synced {
		return nil
	}
	j.synced = true
	return j.tap.Reset()
}

func (j *ShiftJTAG) scan(ir bool, value uint64, size int) (uint64, error) {
	if size <= 0 || size > 64 {
		return 0, fmt.Errorf("probe: scan length %d out of range", size)
	}
	pre := j.prefix()
	path, lead, err := j.tap.Scan(ir, size)
	if err != nil {
		return 0, err
	}
	tms := append(pre, path...)
	lead += len(pre)
	tdi := make([]bool, len(tms))
	for i := 0; i < size; i++ {
		tdi[lead+i] = value>>uint(i)&1 == 1
	}

	shift := j.adapter.ShiftDR
	if ir {
		shift = j.adapter.ShiftIR
	}
	tdo, err := shift(PackBits(tms), PackBits(tdi), len(tms))
	if err != nil {
		return 0, err
	}
	var out uint64
	for i := 0; i < size; i++ {
		if BitAt(tdo, lead+i) {
			out |= 1 << uint(i)
		}
	}
	return out, nil
}

func (j *ShiftJTAG) WriteIR(value uint32, size int) error {
	_, err := j.scan(true, uint64(value), size)
	return err
}

func (j *ShiftJTAG) ReadIR(size int, scan Scan) (uint32, error) {
	v, err := j.scan(true, 0, size)
	return uint32(v), err
}

func (j *ShiftJTAG) WriteDR(value uint64, size int, scan Scan) error {
	_, err := j.scan(false, value, size)
	return err
}

func (j *ShiftJTAG) ReadDR(value uint64, size int, scan Scan) (uint64, error) {
	return j.scan(false, value, size)
}

// Cycle clocks n times in Run-Test/Idle.
func (j *ShiftJTAG) Cycle(n int) error {
	if n <= 0 {
		return nil
	}
	tms := append(j.prefix(), mustIdle(j.tap, n)...)
	_, err := j.adapter.ShiftDR(PackBits(tms), nil, len(tms))
	return err
}

func mustIdle(c *tap.Controller, n int) []bool {
	tms, err := c.Idle(n)
	if err != nil {
		// Run-Test/Idle is reachable from every state.
		panic(err)
	}
	return tms
}
