package adi

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

func TestParseDPRegister(t *testing.T) {
	tests := map[string]DPRegister{
		"IDCODE":    IDCODE,
		"dpidr":     IDCODE,
		"CTRL/STAT": CTRLSTAT,
		"ctrl_stat": CTRLSTAT,
		"CtrlStat":  CTRLSTAT,
		"select":    SELECT,
		"select1":   SELECT1,
		"RD-BUFF":   RDBUFF,
		"wcr":       WCR,
	}
	for in, want := range tests {
		got, ok := ParseDPRegister(in)
		if !ok || got != want {
			t.Errorf("ParseDPRegister(%q) = %s, %v; want %s", in, got, ok, want)
		}
	}
	if _, ok := ParseDPRegister("TARGETSEL"); ok {
		t.Errorf("TARGETSEL resolved")
	}
}

func TestDPRegisterAccess(t *testing.T) {
	tests := []struct {
		reg     DPRegister
		kind    probe.Kind
		version int
		want    Access
	}{
		{IDCODE, probe.KindJTAG, 5, Readable},
		{ABORT, probe.KindSWD, 5, Writable},
		{SELECT, probe.KindJTAG, 5, ReadWrite},
		{SELECT, probe.KindSWD, 5, Writable},
		{WCR, probe.KindJTAG, 5, 0},
		{WCR, probe.KindSWD, 5, ReadWrite},
		{RESEND, probe.KindSWD, 5, Readable},
		{SELECT1, probe.KindJTAG, 5, 0},
		{SELECT1, probe.KindJTAG, 6, ReadWrite},
		{CTRLSTAT, probe.KindNone, 5, 0},
	}
	for _, tt := range tests {
		if got := tt.reg.Access(tt.kind, tt.version); got != tt.want {
			t.Errorf("%s on %s v%d = %s, want %s", tt.reg, tt.kind, tt.version, got, tt.want)
		}
	}
}

func TestDPRegisterEncoding(t *testing.T) {
	tests := []struct {
		reg  DPRegister
		a    uint8
		bank int
	}{
		{IDCODE, 0, -1},
		{CTRLSTAT, 1, 0},
		{SELECT, 2, -1},
		{RDBUFF, 3, -1},
		{SELECT1, 1, 5},
	}
	for _, tt := range tests {
		if got := tt.reg.A(); got != tt.a {
			t.Errorf("%s.A() = %d, want %d", tt.reg, got, tt.a)
		}
		b, ok := tt.reg.Bank()
		if (tt.bank < 0) == ok || (ok && int(b) != tt.bank) {
			t.Errorf("%s.Bank() = %d, %v, want %d", tt.reg, b, ok, tt.bank)
		}
	}
	if len(DPRegisters()) != int(numDPRegisters) {
		t.Errorf("DPRegisters() incomplete")
	}
}

func TestDPOrunDetect(t *testing.T) {
	rec := probe.NewRecorder(nil, nil)
	dp := NewJTAGDP(rec.JTAG(), JTAGConfig{})
	dp.WriteDP(CTRLSTAT, PowerUpRequest|CtrlStatORunDetect)
	if !dp.OrunDetect() {
		t.Errorf("ORUNDETECT not latched")
	}
	dp.WriteDP(SELECT, 0)
	if !dp.OrunDetect() {
		t.Errorf("ORUNDETECT cleared by a SELECT write")
	}
	dp.WriteDP(CTRLSTAT, PowerUpRequest)
	if dp.OrunDetect() {
		t.Errorf("ORUNDETECT still set")
	}
}
