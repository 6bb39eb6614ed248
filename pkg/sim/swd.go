package sim

import (
	"math/bits"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

type swdPhase uint8

const (
	phIdle swdPhase = iota
	phRequest
	phTurnaround
	phDrive
	phReadTurnaround
	phWriteTurnaround
	phWriteData
)

type swdState struct {
	phase swdPhase
	shift uint64
	n     int

	apndp bool
	rnw   bool
	a     uint8
	ack   uint8

	// drive holds the bits the target puts on SWDIO, LSB first.
	drive []bool
	park  int
}

// SWD returns the target's SW-DP face.
func (t *Target) SWD() probe.SWD { return swdLink{t} }

// SWDParkCycles returns the zero clocks seen on the SWD face while idle.
func (t *Target) SWDParkCycles() int { return t.swd.park }

type swdLink struct{ t *Target }

func (l swdLink) Cycle(n int) error { return l.DIOToZero(n) }

func (l swdLink) DIOToZero(cycles int) error {
	for i := 0; i < cycles; i++ {
		if err := l.t.swdSend(false); err != nil {
			return err
		}
	}
	return nil
}

func (l swdLink) SendData(value uint64, n int) error {
	for i := 0; i < n; i++ {
		if err := l.t.swdSend(value>>uint(i)&1 != 0); err != nil {
			return err
		}
	}
	return nil
}

func (l swdLink) GetData(n int, scan probe.Scan) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		b, err := l.t.swdGet()
		if err != nil {
			return 0, err
		}
		if b {
			v |= 1 << uint(i)
		}
	}
	return v, nil
}

func (t *Target) swdSend(b bool) error {
	s := &t.swd
	switch s.phase {
	case phIdle:
		if !b {
			s.park++
			return nil
		}
		s.phase, s.shift, s.n = phRequest, 1, 1
	case phRequest:
		if b {
			s.shift |= 1 << uint(s.n)
		}
		s.n++
		if s.n == 8 {
			t.swdRequest(uint8(s.shift))
			s.phase = phTurnaround
		}
	case phTurnaround:
		s.phase = phDrive
	case phReadTurnaround:
		s.phase = phIdle
	case phWriteTurnaround:
		s.phase, s.shift, s.n = phWriteData, 0, 0
	case phWriteData:
		if b {
			s.shift |= 1 << uint(s.n)
		}
		s.n++
		if s.n == 33 {
			t.swdWriteData(s.shift)
			s.phase = phIdle
		}
	default:
		return t.framing("host drove SWDIO while the target owns it")
	}
	return nil
}

func (t *Target) swdGet() (bool, error) {
	s := &t.swd
	if s.phase != phDrive || len(s.drive) == 0 {
		return false, t.framing("host sampled SWDIO in phase %d", s.phase)
	}
	b := s.drive[0]
	s.drive = s.drive[1:]
	if len(s.drive) == 0 {
		if s.rnw {
			s.phase = phReadTurnaround
		} else {
			s.phase = phWriteTurnaround
		}
	}
	return b, nil
}

func (t *Target) swdRequest(req uint8) {
	s := &t.swd
	s.apndp = req>>1&1 != 0
	s.rnw = req>>2&1 != 0
	s.a = req >> 3 & 3
	parity := req >> 5 & 1
	ok := req>>6&1 == 0 && req>>7&1 == 1 &&
		uint8(bits.OnesCount8(req>>1&0xF)&1) == parity
	s.drive = s.drive[:0]
	if !ok {
		t.log.Debugf("SWD request 0x%02X rejected", req)
		t.count("error", "request")
		s.ack = SWDAckNone
	} else {
		s.ack = t.cfg.SWDAck
	}
	s.drive = appendBits(s.drive, uint64(s.ack), 3)
	if !s.rnw {
		return
	}
	var v uint32
	if s.ack == SWDAckOK {
		v = t.swdRead()
	}
	s.drive = appendBits(s.drive, uint64(v), 32)
	s.drive = appendBits(s.drive, uint64(bits.OnesCount32(v)&1), 1)
}

func (t *Target) swdWriteData(raw uint64) {
	s := &t.swd
	v := uint32(raw)
	if uint64(bits.OnesCount32(v)&1) != raw>>32&1 {
		t.log.Debugf("SWD write data parity error on 0x%08X", v)
		t.count("error", "parity")
		t.ctrlStat |= 1 << 7
		return
	}
	if s.ack != SWDAckOK {
		return
	}
	if s.apndp {
		t.apWrite(s.a, v)
		return
	}
	switch s.a {
	case 0:
		t.count("write", "ABORT")
		t.writeAbort(v)
	case 1:
		if t.sel&1 != 0 {
			t.count("write", "WCR")
			t.wcr = v
		} else {
			t.count("write", "CTRL/STAT")
			t.writeCtrlStat(v)
		}
	case 2:
		t.setSelect(v)
	}
}

func (t *Target) swdRead() uint32 {
	s := &t.swd
	var v uint32
	if s.apndp {
		v = t.apRead(s.a)
	} else {
		switch s.a {
		case 0:
			t.count("read", "IDCODE")
			v = t.cfg.SWDIDCode
		case 1:
			if t.sel&1 != 0 {
				t.count("read", "WCR")
				v = t.wcr
			} else {
				t.count("read", "CTRL/STAT")
				v = t.readCtrlStat()
			}
		case 2:
			t.count("read", "RESEND")
			return t.resend
		case 3:
			t.count("read", "RDBUFF")
			v = t.rdbuff
		}
	}
	t.resend = v
	return v
}

func appendBits(dst []bool, v uint64, n int) []bool {
	for i := 0; i < n; i++ {
		dst = append(dst, v>>uint(i)&1 != 0)
	}
	return dst
}
