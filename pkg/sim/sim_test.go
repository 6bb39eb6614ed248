package sim

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

func dr(data uint32, a uint8, rnw bool) uint64 {
	v := uint64(data)<<3 | uint64(a)<<1
	if rnw {
		v |= 1
	}
	return v
}

func TestJTAGIDCode(t *testing.T) {
	tg := New(Config{})
	j := tg.JTAG()
	if err := j.WriteIR(irIDCODE, 4); err != nil {
		t.Fatal(err)
	}
	got, err := j.ReadDR(0, 32, probe.DontCare)
	if err != nil {
		t.Fatal(err)
	}
	if got != DefaultJTAGIDCode {
		t.Errorf("IDCODE = 0x%08X, want 0x%08X", got, DefaultJTAGIDCode)
	}
	if _, err := j.ReadDR(0, 35, probe.DontCare); !errors.Is(err, ErrFraming) {
		t.Errorf("35-bit IDCODE scan: err = %v, want ErrFraming", err)
	}
}

func TestJTAGPowerUp(t *testing.T) {
	tg := New(Config{})
	j := tg.JTAG()
	j.WriteIR(irDPACC, 4)
	if _, err := j.ReadDR(dr(0x50000000, 1, false), 35, probe.DontCare); err != nil {
		t.Fatal(err)
	}
	j.ReadDR(dr(0, 1, true), 35, probe.DontCare)
	got, _ := j.ReadDR(dr(0, 3, true), 35, probe.DontCare)
	if got&7 != JTAGAckOK {
		t.Errorf("ack = 0b%03b, want OK", got&7)
	}
	if v := uint32(got >> 3); v != 0xF0000000 {
		t.Errorf("CTRL/STAT = 0x%08X, want 0xF0000000", v)
	}
}

func TestJTAGWaitSkipsAccess(t *testing.T) {
	tg := New(Config{JTAGAck: JTAGAckWait})
	j := tg.JTAG()
	j.WriteIR(irDPACC, 4)
	got, _ := j.ReadDR(dr(0xDEAD0000, 2, false), 35, probe.DontCare)
	if got&7 != JTAGAckWait {
		t.Errorf("ack = 0b%03b, want WAIT", got&7)
	}
	if tg.Select() != 0 {
		t.Errorf("SELECT = 0x%08X after WAIT, want unchanged", tg.Select())
	}
}

// swdPacket clocks one complete SWD transfer by hand.
func swdPacket(t *testing.T, l probe.SWD, req uint8, data uint32) (ack uint8, v uint32) {
	t.Helper()
	if err := l.SendData(uint64(req), 8); err != nil {
		t.Fatal(err)
	}
	l.SendData(1, 1)
	a, err := l.GetData(3, probe.DontCare)
	if err != nil {
		t.Fatal(err)
	}
	if req&(1<<2) != 0 {
		d, err := l.GetData(32, probe.DontCare)
		if err != nil {
			t.Fatal(err)
		}
		l.GetData(1, probe.DontCare)
		l.SendData(1, 1)
		v = uint32(d)
	} else {
		l.SendData(1, 1)
		l.SendData(uint64(data), 32)
		par := uint64(0)
		for x := data; x != 0; x &= x - 1 {
			par ^= 1
		}
		l.SendData(par, 1)
	}
	l.DIOToZero(2)
	return uint8(a), v
}

func TestSWDReadIDCode(t *testing.T) {
	tg := New(Config{})
	ack, v := swdPacket(t, tg.SWD(), 0xA5, 0)
	if ack != SWDAckOK {
		t.Errorf("ack = 0b%03b", ack)
	}
	if v != DefaultSWDIDCode {
		t.Errorf("DPIDR = 0x%08X, want 0x%08X", v, DefaultSWDIDCode)
	}
	if tg.SWDParkCycles() != 2 {
		t.Errorf("park cycles = %d, want 2", tg.SWDParkCycles())
	}
}

func TestSWDBadParityRequest(t *testing.T) {
	tg := New(Config{})
	// 0xA5 with the parity bit flipped
	ack, _ := swdPacket(t, tg.SWD(), 0x85, 0)
	if ack != SWDAckNone {
		t.Errorf("ack = 0b%03b, want no response", ack)
	}
	if tg.Count("error", "request") != 1 {
		t.Errorf("request errors = %d", tg.Count("error", "request"))
	}
}

func TestSWDPostedAPRead(t *testing.T) {
	tg := New(Config{APs: []APModel{{Mem: true, IDR: 0x24770011}}})
	l := tg.SWD()
	// SELECT = bank 0xF
	swdPacket(t, l, 0xB1, 0xF0)
	// APACC read A=3 returns the stale RDBUFF
	_, stale := swdPacket(t, l, 0x9F, 0)
	if stale != 0 {
		t.Errorf("first AP read = 0x%08X, want stale 0", stale)
	}
	// RDBUFF
	_, v := swdPacket(t, l, 0xBD, 0)
	if v != 0x24770011 {
		t.Errorf("RDBUFF = 0x%08X, want IDR", v)
	}
}

func TestSWDHostDrivesDuringAck(t *testing.T) {
	tg := New(Config{})
	l := tg.SWD()
	l.SendData(0xA5, 8)
	l.SendData(1, 1)
	if err := l.SendData(1, 1); !errors.Is(err, ErrFraming) {
		t.Errorf("err = %v, want ErrFraming", err)
	}
}

func TestMemAPModel(t *testing.T) {
	tg := New(Config{})
	ap, _ := tg.apTarget(0)
	m := ap.(*memAP)
	m.write(regCSW, 0x23000010) // 8-bit, single increment
	m.write(regTAR, 0x200003FF)
	m.write(regDRW, 0xAB000000)
	if got := tg.Peek(0x200003FC); got != 0xAB000000 {
		t.Errorf("word = 0x%08X", got)
	}
	if m.tar != 0x20000000 {
		t.Errorf("TAR = 0x%08X, want wrap to 0x20000000", m.tar)
	}
	m.write(regTAR, 0x20000010)
	m.write(regBD0+8, 0x11223344)
	if got := tg.Peek(0x20000018); got != 0x11223344 {
		t.Errorf("BD2 word = 0x%08X", got)
	}
	if tg.Count("write", "TAR") != 2 {
		t.Errorf("TAR writes = %d", tg.Count("write", "TAR"))
	}
}
