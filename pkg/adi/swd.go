package adi

import (
	"math/bits"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// SWD acknowledge values as sampled LSB first.
const (
	AckOK    = 0b001
	AckWait  = 0b010
	AckFault = 0b100
)

// SWDConfig configures a SW-DP.
type SWDConfig struct {
	// ParkCycles holds SWDIO low after every access (default 10; negative
	// disables).
	ParkCycles  int
	SelectReset uint32
	Logger      logrus.FieldLogger
}

func (c SWDConfig) withDefaults() SWDConfig {
	c.ParkCycles = delayDefault(c.ParkCycles, 10)
	return c
}

// Parity32 is the XOR fold of all 32 bits of v.
func Parity32(v uint32) uint8 { return uint8(bits.OnesCount32(v) & 1) }

// RequestPacket builds the 8-bit request, in wire order from bit 0: start,
// APnDP, RnW, A[2], A[3], parity, stop, park.
func RequestPacket(apndp, rnw bool, a uint8) uint8 {
	var p uint8 = 1 // start
	var par uint8
	if apndp {
		p |= 1 << 1
		par ^= 1
	}
	if rnw {
		p |= 1 << 2
		par ^= 1
	}
	p |= (a & 0x3) << 3
	par ^= a&1 ^ a>>1&1
	p |= par << 5
	p |= 1 << 7 // park; stop stays 0
	return p
}

// SWDFramer frames DP and AP accesses as SWD packets.
//
// The acknowledge is sampled and kept in LastAck but never changes the flow:
// every packet runs its full data phase whatever the target answered.
type SWDFramer struct {
	dp   *DebugPort
	link probe.SWD
	cfg  SWDConfig

	lastAck uint8
}

// NewSWDP returns a SW-DP driving link.
func NewSWDP(link probe.SWD, cfg SWDConfig) *DebugPort {
	cfg = cfg.withDefaults()
	dp := &DebugPort{
		kind:        probe.KindSWD,
		version:     5,
		name:        "sw-dp",
		log:         component(cfg.Logger, "sw-dp"),
		selectReset: cfg.SelectReset,
		sel:         cfg.SelectReset,
	}
	dp.f = &SWDFramer{dp: dp, link: link, cfg: cfg}
	return dp
}

// SWDFramer exposes the SWD framer of a SW-DP, or nil.
func (dp *DebugPort) SWDFramer() *SWDFramer {
	f, _ := dp.f.(*SWDFramer)
	return f
}

// Config returns the effective configuration.
func (f *SWDFramer) Config() SWDConfig { return f.cfg }

// LastAck returns the acknowledge sampled by the most recent packet.
func (f *SWDFramer) LastAck() uint8 { return f.lastAck }

func (f *SWDFramer) reset() { f.lastAck = 0 }

func (f *SWDFramer) cycle(n int) error { return f.link.Cycle(n) }

// packet runs one complete transfer attempts times.
func (f *SWDFramer) packet(apndp, rnw bool, a uint8, data uint32, t *Transaction, park int) (uint32, error) {
	var got uint32
	for i := 0; i < t.Attempts; i++ {
		v, err := f.transfer(apndp, rnw, a, data, t, park)
		if err != nil {
			return 0, err
		}
		got = v
	}
	return got, nil
}

func (f *SWDFramer) transfer(apndp, rnw bool, a uint8, data uint32, t *Transaction, park int) (uint32, error) {
	if err := f.link.SendData(uint64(RequestPacket(apndp, rnw, a)), 8); err != nil {
		return 0, err
	}
	// turnaround, then the target drives the acknowledge
	if err := f.link.SendData(1, 1); err != nil {
		return 0, err
	}
	ack, err := f.link.GetData(3, probe.DontCare)
	if err != nil {
		return 0, err
	}
	f.lastAck = uint8(ack)
	if f.lastAck != AckOK {
		f.dp.log.WithFields(logrus.Fields{"ack": f.lastAck}).Debug("SWD acknowledge is not OK")
	}

	var out uint32
	if rnw {
		v, err := f.link.GetData(32, t.scan(0))
		if err != nil {
			return 0, err
		}
		out = uint32(v)
		par, err := f.link.GetData(1, probe.DontCare)
		if err != nil {
			return 0, err
		}
		if f.lastAck == AckOK && uint8(par) != Parity32(out) {
			f.dp.log.Debugf("SWD read parity mismatch on 0x%08X", out)
		}
		if err := f.link.SendData(1, 1); err != nil {
			return 0, err
		}
	} else {
		if err := f.link.SendData(1, 1); err != nil {
			return 0, err
		}
		if err := f.link.SendData(uint64(data), 32); err != nil {
			return 0, err
		}
		if err := f.link.SendData(uint64(Parity32(data)), 1); err != nil {
			return 0, err
		}
	}
	if park > 0 {
		if err := f.link.DIOToZero(park); err != nil {
			return 0, err
		}
	}
	return out, nil
}

func (f *SWDFramer) dpPark(t *Transaction) int {
	if t.ParkCycles > 0 {
		return t.ParkCycles
	}
	return f.cfg.ParkCycles
}

// setSelect writes SELECT when the AP, bank or CTRLSEL bits of v differ from
// the cache.
func (f *SWDFramer) setSelect(v uint32) error {
	want := v & 0xFF0000F1
	if f.dp.sel&0xFF0000F1 == want {
		return nil
	}
	return f.dp.WriteDP(SELECT, want&0xFF0000FF)
}

// selectDP switches CTRLSEL for the registers sharing offset 0x4.
func (f *SWDFramer) selectDP(r DPRegister) error {
	switch r {
	case CTRLSTAT:
		return f.setSelect(f.dp.sel &^ SelectCtrlSel)
	case WCR:
		return f.setSelect(f.dp.sel | SelectCtrlSel)
	}
	return nil
}

func (f *SWDFramer) readDP(r DPRegister, t *Transaction) (uint32, error) {
	if err := f.selectDP(r); err != nil {
		return 0, err
	}
	return f.packet(false, true, r.A(), 0, t, f.dpPark(t))
}

func (f *SWDFramer) writeDP(r DPRegister, v uint32, t *Transaction) error {
	if err := f.selectDP(r); err != nil {
		return err
	}
	_, err := f.packet(false, false, r.A(), v, t, f.dpPark(t))
	return err
}

func (f *SWDFramer) selectAP(addr uint64) error {
	return f.setSelect(uint32(addr)&^SelectCtrlSel | f.dp.sel&SelectCtrlSel)
}

func (f *SWDFramer) readAP(addr uint64, t *Transaction) (uint32, error) {
	if err := f.selectAP(addr); err != nil {
		return 0, err
	}
	if _, err := f.packet(true, true, uint8(addr>>2)&0x3, 0, t.junk(), f.cfg.ParkCycles); err != nil {
		return 0, err
	}
	if t.WaitStates > 0 {
		if err := f.link.Cycle(t.WaitStates); err != nil {
			return 0, err
		}
	}
	return f.packet(false, true, RDBUFF.A(), 0, t, f.cfg.ParkCycles)
}

func (f *SWDFramer) writeAP(addr uint64, v uint32, t *Transaction) error {
	if err := f.selectAP(addr); err != nil {
		return err
	}
	_, err := f.packet(true, false, uint8(addr>>2)&0x3, v, t, f.cfg.ParkCycles)
	return err
}
