// Package sim is a wire-level model of an ARM DAP. It decodes JTAG scans and
// SWD packets the way a JTAG-DP or SW-DP does, answers with power-up
// acknowledges, posted AP reads and MEM-AP auto-increment, and keeps a sparse
// memory behind every MEM-AP.
package sim

import (
	"errors"
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/sirupsen/logrus"
)

// ErrFraming is returned when the host drives the wire out of protocol order.
var ErrFraming = errors.New("sim: framing error")

// Default identification values.
const (
	DefaultJTAGIDCode = 0x4BA00477
	DefaultSWDIDCode  = 0x2BA01477
)

// JTAG acknowledges captured in DR[2:0].
const (
	JTAGAckWait = 0b001
	JTAGAckOK   = 0b010
)

// SWD acknowledges.
const (
	SWDAckOK    = 0b001
	SWDAckWait  = 0b010
	SWDAckFault = 0b100
	// SWDAckNone is what the host samples when the target does not drive.
	SWDAckNone = 0b111
)

// APModel describes one AP of the simulated target.
type APModel struct {
	// Base is APSEL<<24 for ADIv5 targets. For v6 it is the address of the
	// 256-byte window holding CSW at offset 0.
	Base uint64
	Mem  bool
	IDR  uint32
	CSW  uint32
	CFG  uint32
	BASE uint32
	Regs map[uint32]uint32
}

// Config describes the simulated target.
type Config struct {
	JTAGIDCode uint32
	SWDIDCode  uint32
	// Version 6 selects the ADIv6 SELECT/SELECT1 layout on JTAG.
	Version int
	JTAGAck uint8
	SWDAck  uint8
	APs     []APModel
	Logger  logrus.FieldLogger
}

type apModel interface {
	read(offset uint32) uint32
	write(offset, v uint32)
}

// Target is the simulated DAP. JTAG and SWD views share its state, as on an
// SWJ-DP.
type Target struct {
	cfg Config
	log logrus.FieldLogger

	ctrlStat uint32
	sel      uint32
	sel1     uint32
	wcr      uint32
	rdbuff   uint32
	resend   uint32

	aps     map[uint64]apModel
	present bitmap.Bitmap
	mem     map[uint32]byte

	counts map[string]int

	jtag jtagState
	swd  swdState
}

// New builds a target. With no APs it gets one MEM-AP at APSEL 0.
func New(cfg Config) *Target {
	if cfg.JTAGIDCode == 0 {
		cfg.JTAGIDCode = DefaultJTAGIDCode
	}
	if cfg.SWDIDCode == 0 {
		cfg.SWDIDCode = DefaultSWDIDCode
	}
	if cfg.JTAGAck == 0 {
		cfg.JTAGAck = JTAGAckOK
	}
	if cfg.SWDAck == 0 {
		cfg.SWDAck = SWDAckOK
	}
	if len(cfg.APs) == 0 {
		cfg.APs = []APModel{{Mem: true, IDR: 0x24770011, CSW: 0x23000040}}
	}
	l := cfg.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	t := &Target{
		cfg:     cfg,
		log:     l.WithField("prefix", "sim"),
		aps:     make(map[uint64]apModel),
		present: bitmap.New(256),
		mem:     make(map[uint32]byte),
		counts:  make(map[string]int),
	}
	for _, m := range cfg.APs {
		if m.Mem {
			t.aps[m.Base] = newMemAP(t, m)
		} else {
			t.aps[m.Base] = newRegAP(m)
		}
		if cfg.Version < 6 {
			t.present.Set(int(m.Base>>24&0xFF), true)
		}
	}
	t.jtag.ir = 0b1110
	return t
}

// Populated reports whether an ADIv5 AP answers at apsel.
func (t *Target) Populated(apsel uint8) bool { return t.present.Get(int(apsel)) }

// CtrlStat returns CTRL/STAT as a read would see it.
func (t *Target) CtrlStat() uint32 { return t.readCtrlStat() }

// Select returns the SELECT register.
func (t *Target) Select() uint32 { return t.sel }

// Select1 returns the ADIv6 SELECT1 register.
func (t *Target) Select1() uint32 { return t.sel1 }

// Count returns how many times op ("read" or "write") hit the named register.
// DP registers use their ADI names; MEM-AP registers use CSW, TAR, DRW, BDn.
func (t *Target) Count(op, reg string) int { return t.counts[op+" "+reg] }

// ResetCounts clears the access counters.
func (t *Target) ResetCounts() { t.counts = make(map[string]int) }

func (t *Target) count(op, reg string) { t.counts[op+" "+reg]++ }

// Peek reads a little-endian word from simulated memory.
func (t *Target) Peek(addr uint32) uint32 {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		v |= uint32(t.mem[addr+i]) << (8 * i)
	}
	return v
}

// Poke writes a little-endian word to simulated memory.
func (t *Target) Poke(addr, v uint32) {
	for i := uint32(0); i < 4; i++ {
		t.mem[addr+i] = byte(v >> (8 * i))
	}
}

func (t *Target) readCtrlStat() uint32 {
	v := t.ctrlStat
	// requests are acknowledged immediately
	if v&(1<<30) != 0 {
		v |= 1 << 31
	}
	if v&(1<<28) != 0 {
		v |= 1 << 29
	}
	if v&(1<<26) != 0 {
		v |= 1 << 27
	}
	return v
}

func (t *Target) writeCtrlStat(v uint32) {
	const sticky = 1<<1 | 1<<4 | 1<<5 | 1<<7
	t.ctrlStat = t.ctrlStat&sticky | v&^(sticky|1<<31|1<<29|1<<27)
}

func (t *Target) writeAbort(v uint32) {
	if v&(1<<1) != 0 {
		t.ctrlStat &^= 1 << 4
	}
	if v&(1<<2) != 0 {
		t.ctrlStat &^= 1 << 5
	}
	if v&(1<<3) != 0 {
		t.ctrlStat &^= 1 << 7
	}
	if v&(1<<4) != 0 {
		t.ctrlStat &^= 1 << 1
	}
}

// apTarget decodes SELECT into the AP and the register offset for A[3:2].
func (t *Target) apTarget(a uint8) (apModel, uint32) {
	if t.cfg.Version >= 6 {
		// v6 APs are keyed by the address of their register window
		addr := uint64(t.sel1)<<32 | uint64(t.sel&^0xF) | uint64(a)<<2
		return t.aps[addr&^0xFF], uint32(addr & 0xFF)
	}
	apsel := t.sel >> 24
	off := t.sel&0xF0 | uint32(a)<<2
	if !t.present.Get(int(apsel)) {
		return nil, off
	}
	return t.aps[uint64(apsel)<<24], off
}

// apRead performs a posted AP read: the caller sees the previous result and
// RDBUFF takes the new one.
func (t *Target) apRead(a uint8) uint32 {
	prev := t.rdbuff
	ap, off := t.apTarget(a)
	if ap == nil {
		t.log.Debugf("AP read with no AP at SELECT 0x%08X", t.sel)
		t.rdbuff = 0
		return prev
	}
	t.rdbuff = ap.read(off)
	t.log.Debugf("AP read 0x%02X: 0x%08X", off, t.rdbuff)
	return prev
}

func (t *Target) apWrite(a uint8, v uint32) {
	ap, off := t.apTarget(a)
	if ap == nil {
		t.log.Debugf("AP write with no AP at SELECT 0x%08X", t.sel)
		return
	}
	t.log.Debugf("AP write 0x%02X: 0x%08X", off, v)
	ap.write(off, v)
}

func (t *Target) setSelect(v uint32) {
	t.count("write", "SELECT")
	t.sel = v
}

func (t *Target) framing(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFraming, fmt.Sprintf(format, args...))
}
