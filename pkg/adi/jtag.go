package adi

import (
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// JTAG-DP instruction register codes.
const (
	IRAbort  = 0b1000
	IRDPACC  = 0b1010
	IRAPACC  = 0b1011
	IRIDCODE = 0b1110
	IRBypass = 0b1111
)

// DRSize is the length of the DPACC, APACC and ABORT scan chains.
const DRSize = 35

// ReadAckDefault is the acknowledge checked on v6 RDBUFF reads when
// JTAGConfig.ReadAckEnabled is set without an explicit value.
const ReadAckDefault = 0b100

// IRCodes lets a target override the ARM instruction encodings.
type IRCodes struct {
	Abort, DPACC, APACC, IDCODE, Bypass uint32
}

// DefaultIRCodes are the ADI encodings for a 4-bit IR.
var DefaultIRCodes = IRCodes{Abort: IRAbort, DPACC: IRDPACC, APACC: IRAPACC, IDCODE: IRIDCODE, Bypass: IRBypass}

// JTAGConfig configures a JTAG-DP. Zero fields take the documented default;
// negative delays disable the delay.
type JTAGConfig struct {
	// Version is 5 (default) or 6.
	Version int
	IRSize  int // default 4
	IR      IRCodes
	// AccessDelay idles the link after every scan (default 7).
	AccessDelay int
	// WriteAPDelay idles the link after an AP write (default 8).
	WriteAPDelay int
	// ReadAck, when non-zero, is compared with DR[2:0] of v6 RDBUFF reads
	// that collect AP data. ReadAckEnabled alone selects ReadAckDefault.
	ReadAck        uint8
	ReadAckEnabled bool
	SelectReset    uint32
	Filler         Filler
	Logger         logrus.FieldLogger
}

func (c JTAGConfig) withDefaults() JTAGConfig {
	if c.Version == 0 {
		c.Version = 5
	}
	if c.IRSize == 0 {
		c.IRSize = 4
	}
	if c.IR == (IRCodes{}) {
		c.IR = DefaultIRCodes
	}
	c.AccessDelay = delayDefault(c.AccessDelay, 7)
	c.WriteAPDelay = delayDefault(c.WriteAPDelay, 8)
	if c.ReadAckEnabled && c.ReadAck == 0 {
		c.ReadAck = ReadAckDefault
	}
	return c
}

func delayDefault(v, def int) int {
	switch {
	case v == 0:
		return def
	case v < 0:
		return 0
	}
	return v
}

// FrameDR packs a 35-bit DPACC/APACC scan: data in bits 34:3, A[3:2] in
// bits 2:1 and RnW in bit 0.
func FrameDR(data uint32, a uint8, rnw bool) uint64 {
	v := uint64(data)<<3 | uint64(a&0x3)<<1
	if rnw {
		v |= 1
	}
	return v
}

// UnframeDR splits a 35-bit scan into its fields. For captured data the low
// three bits hold the acknowledge rather than A and RnW.
func UnframeDR(dr uint64) (data uint32, a uint8, rnw bool) {
	return uint32(dr >> 3), uint8(dr>>1) & 0x3, dr&1 == 1
}

// JTAGFramer frames DP and AP accesses as IR/DR scans.
type JTAGFramer struct {
	dp   *DebugPort
	link probe.JTAG
	cfg  JTAGConfig

	ir      uint32
	irValid bool
}

// NewJTAGDP returns a JTAG-DP driving link.
func NewJTAGDP(link probe.JTAG, cfg JTAGConfig) *DebugPort {
	cfg = cfg.withDefaults()
	name := "jtag-dp"
	if cfg.Version >= 6 {
		name = "jtag-dp6"
	}
	dp := &DebugPort{
		kind:        probe.KindJTAG,
		version:     cfg.Version,
		name:        name,
		log:         component(cfg.Logger, name),
		selectReset: cfg.SelectReset,
		sel:         cfg.SelectReset,
	}
	dp.f = &JTAGFramer{dp: dp, link: link, cfg: cfg}
	return dp
}

// Framer exposes the JTAG framer of a JTAG-DP, or nil.
func (dp *DebugPort) JTAGFramer() *JTAGFramer {
	f, _ := dp.f.(*JTAGFramer)
	return f
}

// Config returns the effective configuration.
func (f *JTAGFramer) Config() JTAGConfig { return f.cfg }

// IR returns the cached instruction, if any has been loaded.
func (f *JTAGFramer) IR() (uint32, bool) { return f.ir, f.irValid }

func (f *JTAGFramer) reset() { f.irValid = false }

func (f *JTAGFramer) cycle(n int) error { return f.link.Cycle(n) }

func (f *JTAGFramer) setIR(code uint32) error {
	if f.irValid && f.ir == code {
		return nil
	}
	if err := f.link.WriteIR(code, f.cfg.IRSize); err != nil {
		return err
	}
	f.ir, f.irValid = code, true
	return nil
}

func (f *JTAGFramer) settle() error {
	if f.cfg.AccessDelay == 0 {
		return nil
	}
	return f.link.Cycle(f.cfg.AccessDelay)
}

// access shifts one request scan attempts times and lets it settle.
func (f *JTAGFramer) access(ir uint32, a uint8, rnw bool, data uint32, t *Transaction) error {
	if err := f.setIR(ir); err != nil {
		return err
	}
	dr := FrameDR(data, a, rnw)
	for i := 0; i < t.Attempts; i++ {
		if err := f.link.WriteDR(dr, DRSize, probe.DontCare); err != nil {
			return err
		}
	}
	return f.settle()
}

// collect reads RDBUFF, whose capture carries the result of the previous
// scan. ack, when non-zero, is judged against DR[2:0].
func (f *JTAGFramer) collect(t *Transaction, ack uint8) (uint32, error) {
	if err := f.setIR(f.cfg.IR.DPACC); err != nil {
		return 0, err
	}
	scan := t.scan(3)
	if ack != 0 {
		scan.Mask |= 0x7
		scan.Expect |= uint64(ack & 0x7)
	}
	dr := FrameDR(f.cfg.Filler.Next(), RDBUFF.A(), true)
	var got uint64
	for i := 0; i < t.Attempts; i++ {
		v, err := f.link.ReadDR(dr, DRSize, scan)
		if err != nil {
			return 0, err
		}
		got = v
	}
	if err := f.settle(); err != nil {
		return 0, err
	}
	if ack != 0 && uint8(got&0x7) != ack {
		f.dp.log.Debugf("RDBUFF acknowledge 0b%03b, expected 0b%03b", got&0x7, ack)
	}
	data, _, _ := UnframeDR(got)
	return data, nil
}

func (f *JTAGFramer) readAck(t *Transaction) uint8 {
	if f.cfg.Version < 6 {
		return 0
	}
	if t.ReadAck != 0 {
		return t.ReadAck
	}
	return f.cfg.ReadAck
}

// selectBank makes DPBANKSEL match a banked v6 register.
func (f *JTAGFramer) selectBank(r DPRegister) error {
	bank, ok := r.Bank()
	if !ok || f.cfg.Version < 6 {
		return nil
	}
	if f.dp.sel&0xF == uint32(bank) {
		return nil
	}
	return f.dp.WriteDP(SELECT, f.dp.sel&^0xF|uint32(bank))
}

func (f *JTAGFramer) readDP(r DPRegister, t *Transaction) (uint32, error) {
	switch r {
	case IDCODE:
		if err := f.setIR(f.cfg.IR.IDCODE); err != nil {
			return 0, err
		}
		var got uint64
		for i := 0; i < t.Attempts; i++ {
			v, err := f.link.ReadDR(uint64(f.cfg.Filler.Next()), 32, t.scan(0))
			if err != nil {
				return 0, err
			}
			got = v
		}
		return uint32(got), f.settle()
	case RDBUFF:
		return f.collect(t, 0)
	}
	if err := f.selectBank(r); err != nil {
		return 0, err
	}
	if err := f.access(f.cfg.IR.DPACC, r.A(), true, f.cfg.Filler.Next(), t.junk()); err != nil {
		return 0, err
	}
	return f.collect(t, 0)
}

func (f *JTAGFramer) writeDP(r DPRegister, v uint32, t *Transaction) error {
	if r == ABORT {
		return f.access(f.cfg.IR.Abort, r.A(), false, v, t)
	}
	if err := f.selectBank(r); err != nil {
		return err
	}
	return f.access(f.cfg.IR.DPACC, r.A(), false, v, t)
}

func (f *JTAGFramer) selectAP(addr uint64) error {
	if f.cfg.Version >= 6 {
		return f.selectAPv6(addr)
	}
	want := uint32(addr) & 0xFF0000F0
	if f.dp.sel&0xFF0000F0 == want {
		return nil
	}
	return f.dp.WriteDP(SELECT, want|f.cfg.Filler.Next()&0x00FFFF0F)
}

func (f *JTAGFramer) selectAPv6(addr uint64) error {
	hi := uint32(addr >> 32)
	if hi != f.dp.sel1 {
		if err := f.dp.WriteDP(SELECT1, hi); err != nil {
			return err
		}
	}
	field := uint32(addr) >> 4
	if f.dp.sel>>4 == field {
		return nil
	}
	return f.dp.WriteDP(SELECT, field<<4|f.dp.sel&0xF)
}

func (f *JTAGFramer) readAP(addr uint64, t *Transaction) (uint32, error) {
	if err := f.selectAP(addr); err != nil {
		return 0, err
	}
	a := uint8(addr>>2) & 0x3
	if err := f.access(f.cfg.IR.APACC, a, true, f.cfg.Filler.Next(), t.junk()); err != nil {
		return 0, err
	}
	if t.WaitStates > 0 {
		if err := f.link.Cycle(t.WaitStates); err != nil {
			return 0, err
		}
	}
	return f.collect(t, f.readAck(t))
}

func (f *JTAGFramer) writeAP(addr uint64, v uint32, t *Transaction) error {
	if err := f.selectAP(addr); err != nil {
		return err
	}
	a := uint8(addr>>2) & 0x3
	if err := f.access(f.cfg.IR.APACC, a, false, v, t); err != nil {
		return err
	}
	if f.cfg.WriteAPDelay == 0 {
		return nil
	}
	return f.link.Cycle(f.cfg.WriteAPDelay)
}
