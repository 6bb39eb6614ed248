package sim

import "github.com/OpenTraceLab/OpenTraceADI/pkg/probe"

// JTAG-DP instructions decoded by the model.
const (
	irAbort  = 0b1000
	irDPACC  = 0b1010
	irAPACC  = 0b1011
	irIDCODE = 0b1110
	irBypass = 0b1111
)

type jtagState struct {
	ir uint32
	// pending is the result the next DPACC/APACC capture returns.
	pending uint32
	cycles  int
}

// JTAG returns the target's JTAG-DP face.
func (t *Target) JTAG() probe.JTAG { return jtagLink{t} }

// JTAGCycles returns the idle clocks seen on the JTAG face.
func (t *Target) JTAGCycles() int { return t.jtag.cycles }

type jtagLink struct{ t *Target }

func (l jtagLink) Cycle(n int) error {
	l.t.jtag.cycles += n
	return nil
}

func (l jtagLink) WriteIR(value uint32, size int) error {
	l.t.jtag.ir = value & uint32(probe.Mask(size))
	return nil
}

// ReadIR captures 0b0001 as IEEE 1149.1 requires.
func (l jtagLink) ReadIR(size int, scan probe.Scan) (uint32, error) {
	l.t.jtag.ir = 0b0001
	return 1, nil
}

func (l jtagLink) WriteDR(value uint64, size int, scan probe.Scan) error {
	_, err := l.t.shiftDR(value, size)
	return err
}

func (l jtagLink) ReadDR(value uint64, size int, scan probe.Scan) (uint64, error) {
	return l.t.shiftDR(value, size)
}

func (t *Target) shiftDR(value uint64, size int) (uint64, error) {
	switch t.jtag.ir {
	case irIDCODE:
		if size != 32 {
			return 0, t.framing("IDCODE scan of %d bits", size)
		}
		return uint64(t.cfg.JTAGIDCode), nil
	case irBypass:
		return value << 1 & probe.Mask(size), nil
	case irAbort, irDPACC, irAPACC:
		if size != 35 {
			return 0, t.framing("access scan of %d bits with IR 0x%X", size, t.jtag.ir)
		}
	default:
		return 0, t.framing("unsupported IR 0x%X", t.jtag.ir)
	}

	ack := uint64(t.cfg.JTAGAck)
	capture := uint64(t.jtag.pending)<<3 | ack
	if ack != JTAGAckOK {
		return capture, nil
	}

	rnw := value&1 != 0
	a := uint8(value >> 1 & 3)
	data := uint32(value >> 3)
	switch t.jtag.ir {
	case irAbort:
		t.count("write", "ABORT")
		t.writeAbort(data)
		t.jtag.pending = 0
	case irDPACC:
		if rnw {
			t.jtag.pending = t.jtagReadDP(a)
		} else {
			t.jtagWriteDP(a, data)
			t.jtag.pending = 0
		}
	case irAPACC:
		if rnw {
			t.apRead(a)
			t.jtag.pending = t.rdbuff
		} else {
			t.apWrite(a, data)
			t.jtag.pending = 0
		}
	}
	return capture, nil
}

func (t *Target) dpBank() uint32 {
	if t.cfg.Version >= 6 {
		return t.sel & 0xF
	}
	return 0
}

func (t *Target) jtagReadDP(a uint8) uint32 {
	switch a {
	case 1:
		switch t.dpBank() {
		case 0:
			t.count("read", "CTRL/STAT")
			return t.readCtrlStat()
		case 5:
			t.count("read", "SELECT1")
			return t.sel1
		}
		return 0
	case 2:
		t.count("read", "SELECT")
		return t.sel
	case 3:
		t.count("read", "RDBUFF")
		return t.rdbuff
	}
	return 0
}

func (t *Target) jtagWriteDP(a uint8, v uint32) {
	switch a {
	case 1:
		switch t.dpBank() {
		case 0:
			t.count("write", "CTRL/STAT")
			t.writeCtrlStat(v)
		case 5:
			t.count("write", "SELECT1")
			t.sel1 = v
		}
	case 2:
		t.setSelect(v)
	}
}
