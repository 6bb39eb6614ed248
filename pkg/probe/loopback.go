package probe

import "fmt"

// ShiftRegion tells whether an adapter shift was issued as IR or DR.
type ShiftRegion uint8

const (
	ShiftRegionIR ShiftRegion = iota
	ShiftRegionDR
)

// ShiftHook produces TDO for a simulated adapter.
type ShiftHook func(region ShiftRegion, tms, tdi []byte, bits int) ([]byte, error)

// ShiftOp is one shift seen by a Loopback adapter.
type ShiftOp struct {
	Region ShiftRegion
	TMS    []byte
	TDI    []byte
	Bits   int
}

// Loopback is an in-memory Adapter. It keeps every shift for inspection and
// echoes TDI to TDO unless OnShift is set.
type Loopback struct {
	InfoData AdapterInfo
	SpeedHz  int

	OnShift ShiftHook

	shifts []ShiftOp
	resets int
	hard   int
}

// NewLoopback returns a loopback adapter reporting info.
func NewLoopback(info AdapterInfo) *Loopback {
	return &Loopback{InfoData: info}
}

// Shifts returns the recorded shifts in issue order.
func (l *Loopback) Shifts() []ShiftOp {
	return append([]ShiftOp(nil), l.shifts...)
}

// ResetCounts reports total and hard TAP resets.
func (l *Loopback) ResetCounts() (total, hard int) { return l.resets, l.hard }

func (l *Loopback) Info() (AdapterInfo, error) { return l.InfoData, nil }

func (l *Loopback) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	return l.shift(ShiftRegionIR, tms, tdi, bits)
}

func (l *Loopback) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	return l.shift(ShiftRegionDR, tms, tdi, bits)
}

func (l *Loopback) ResetTAP(hard bool) error {
	l.resets++
	if hard {
		l.hard++
	}
	return nil
}

func (l *Loopback) SetSpeed(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("probe: invalid speed %dHz", hz)
	}
	l.SpeedHz = hz
	return nil
}

func (l *Loopback) shift(region ShiftRegion, tms, tdi []byte, bits int) ([]byte, error) {
	required, err := ValidateShiftBuffers(tms, tdi, bits)
	if err != nil {
		return nil, err
	}
	l.shifts = append(l.shifts, ShiftOp{
		Region: region,
		TMS:    append([]byte(nil), tms...),
		TDI:    append([]byte(nil), tdi...),
		Bits:   bits,
	})
	if l.OnShift != nil {
		return l.OnShift(region, tms, tdi, bits)
	}
	tdo := make([]byte, required)
	copy(tdo, tdi)
	return tdo, nil
}
