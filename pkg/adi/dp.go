package adi

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// framer is the transport-specific half of a DebugPort.
type framer interface {
	readDP(r DPRegister, t *Transaction) (uint32, error)
	writeDP(r DPRegister, v uint32, t *Transaction) error
	readAP(addr uint64, t *Transaction) (uint32, error)
	writeAP(addr uint64, v uint32, t *Transaction) error
	selectAP(addr uint64) error
	cycle(n int) error
	reset()
}

// DebugPort is a JTAG-DP or SW-DP. It owns the SELECT cache and the sticky
// ORUNDETECT flag; every DP and AP access of a session goes through it.
type DebugPort struct {
	kind    probe.Kind
	version int
	name    string
	log     logrus.FieldLogger
	f       framer

	selectReset uint32
	sel         uint32
	sel1        uint32
	orunDetect  bool
}

// Kind reports the transport.
func (dp *DebugPort) Kind() probe.Kind { return dp.kind }

// Version is 5 for ADIv5 ports and 6 for a JTAG-DP v6.
func (dp *DebugPort) Version() int { return dp.version }

func (dp *DebugPort) String() string { return dp.name }

// Port lets a DebugPort stand in wherever APs look their port up.
func (dp *DebugPort) Port() *DebugPort { return dp }

// Select returns the cached SELECT value, which always equals the last value
// written to the register (or the configured reset value).
func (dp *DebugPort) Select() uint32 { return dp.sel }

// Select1 returns the cached ADIv6 SELECT1 value.
func (dp *DebugPort) Select1() uint32 { return dp.sel1 }

// OrunDetect reports the ORUNDETECT bit last written to CTRL/STAT.
func (dp *DebugPort) OrunDetect() bool { return dp.orunDetect }

// Reset returns the caches to their power-on view.
func (dp *DebugPort) Reset() {
	dp.sel = dp.selectReset
	dp.sel1 = 0
	dp.orunDetect = false
	dp.f.reset()
}

// Cycle idles the link for n clocks.
func (dp *DebugPort) Cycle(n int) error {
	if n <= 0 {
		return nil
	}
	return dp.f.cycle(n)
}

func (dp *DebugPort) reject(op string, r DPRegister, err error) error {
	e := &AccessError{Port: dp.name, Register: r.String(), Op: op, Err: err}
	dp.log.Warn(e.Error())
	return e
}

func (dp *DebugPort) checkAccess(op string, r DPRegister, need Access) error {
	if !r.valid() {
		return dp.reject(op, r, ErrUnknownRegister)
	}
	acc := r.Access(dp.kind, dp.version)
	switch {
	case acc == 0:
		return dp.reject(op, r, ErrUnsupported)
	case need == Readable && acc&Readable == 0:
		return dp.reject(op, r, ErrWriteOnly)
	case need == Writable && acc&Writable == 0:
		return dp.reject(op, r, ErrReadOnly)
	}
	return nil
}

// ReadDP reads a DP register. Reads of write-only or absent registers are
// logged and skipped with a non-fatal *AccessError.
func (dp *DebugPort) ReadDP(r DPRegister, opts ...Option) (uint32, error) {
	if err := dp.checkAccess("read", r, Readable); err != nil {
		return 0, err
	}
	t := newTransaction(opts)
	v, err := dp.f.readDP(r, t)
	if err != nil {
		return 0, fmt.Errorf("%s: read %s: %w", dp.name, r, err)
	}
	dp.log.Debugf("Read DP register %s: 0x%08X", r, v)
	return v, t.check(dp.name, r.String(), v)
}

// WriteDP writes a DP register. Writes to read-only or absent registers are
// logged and skipped with a non-fatal *AccessError.
func (dp *DebugPort) WriteDP(r DPRegister, v uint32, opts ...Option) error {
	if err := dp.checkAccess("write", r, Writable); err != nil {
		return err
	}
	if r == ABORT && v != AbortDAPAbort && dp.kind == probe.KindJTAG {
		dp.log.Warnf("ABORT should only be written with 0x00000001, got 0x%08X", v)
	}
	dp.log.Debugf("Write DP register %s: 0x%08X", r, v)
	if err := dp.f.writeDP(r, v, newTransaction(opts)); err != nil {
		return fmt.Errorf("%s: write %s: %w", dp.name, r, err)
	}
	switch r {
	case SELECT:
		dp.sel = v
	case SELECT1:
		dp.sel1 = v
	case CTRLSTAT:
		dp.orunDetect = v&CtrlStatORunDetect != 0
	}
	return nil
}

// WriteReadDP writes v and reads the register back, expecting v unless an
// explicit expectation is given.
func (dp *DebugPort) WriteReadDP(r DPRegister, v uint32, opts ...Option) (uint32, error) {
	if err := dp.WriteDP(r, v, opts...); err != nil {
		return 0, err
	}
	return dp.ReadDP(r, append([]Option{WithExpect(v)}, opts...)...)
}

func (dp *DebugPort) lookup(op, name string) (DPRegister, error) {
	r, ok := ParseDPRegister(name)
	if !ok {
		e := &AccessError{Port: dp.name, Register: name, Op: op, Err: ErrUnknownRegister}
		dp.log.Warn(e.Error())
		return 0, e
	}
	return r, nil
}

// ReadDPByName resolves name and reads it. Unknown names are a non-fatal
// *AccessError.
func (dp *DebugPort) ReadDPByName(name string, opts ...Option) (uint32, error) {
	r, err := dp.lookup("read", name)
	if err != nil {
		return 0, err
	}
	return dp.ReadDP(r, opts...)
}

// WriteDPByName resolves name and writes it.
func (dp *DebugPort) WriteDPByName(name string, v uint32, opts ...Option) error {
	r, err := dp.lookup("write", name)
	if err != nil {
		return err
	}
	return dp.WriteDP(r, v, opts...)
}

// SetAPSelect points SELECT at the AP and bank holding addr. SELECT is only
// written when the cached value selects something else.
func (dp *DebugPort) SetAPSelect(addr uint64) error {
	return dp.f.selectAP(addr)
}

// ReadAP reads the AP register at addr: a posted APACC read followed by an
// RDBUFF read that returns the data.
func (dp *DebugPort) ReadAP(addr uint64, opts ...Option) (uint32, error) {
	t := newTransaction(opts)
	v, err := dp.f.readAP(addr, t)
	if err != nil {
		return 0, fmt.Errorf("%s: read AP 0x%08X: %w", dp.name, addr, err)
	}
	dp.log.Debugf("Read AP 0x%08X: 0x%08X", addr, v)
	return v, t.check(dp.name, fmt.Sprintf("AP 0x%08X", addr), v)
}

// WriteAP writes the AP register at addr.
func (dp *DebugPort) WriteAP(addr uint64, v uint32, opts ...Option) error {
	dp.log.Debugf("Write AP 0x%08X: 0x%08X", addr, v)
	if err := dp.f.writeAP(addr, v, newTransaction(opts)); err != nil {
		return fmt.Errorf("%s: write AP 0x%08X: %w", dp.name, addr, err)
	}
	return nil
}

// WriteReadAP writes v to addr and reads it back expecting v.
func (dp *DebugPort) WriteReadAP(addr uint64, v uint32, opts ...Option) (uint32, error) {
	if err := dp.WriteAP(addr, v, opts...); err != nil {
		return 0, err
	}
	return dp.ReadAP(addr, append([]Option{WithExpect(v)}, opts...)...)
}
