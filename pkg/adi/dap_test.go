package adi

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/sim"
)

func TestNewNoTransport(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoTransport) {
		t.Fatalf("err = %v, want ErrNoTransport", err)
	}
}

func TestNewActivePort(t *testing.T) {
	target := sim.New(sim.Config{})
	tests := []struct {
		name string
		cfg  Config
		want probe.Kind
	}{
		{"jtag only", Config{JTAG: target.JTAG()}, probe.KindJTAG},
		{"swd only", Config{SWD: target.SWD()}, probe.KindSWD},
		{"both default", Config{JTAG: target.JTAG(), SWD: target.SWD()}, probe.KindJTAG},
		{"both swd", Config{JTAG: target.JTAG(), SWD: target.SWD(), Active: probe.KindSWD}, probe.KindSWD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if got := d.Port().Kind(); got != tt.want {
				t.Errorf("active = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSetDP(t *testing.T) {
	d, target := newSimDAP(t, probe.KindJTAG, sim.Config{})
	if err := d.SetDP(probe.KindSWD); err != nil {
		t.Fatal(err)
	}
	v, err := d.Port().ReadDP(IDCODE)
	if err != nil || v != sim.DefaultSWDIDCode {
		t.Errorf("SWD DPIDR = 0x%08X, %v", v, err)
	}
	d.SetDP(probe.KindJTAG)
	v, _ = d.Port().ReadDP(IDCODE)
	if v != sim.DefaultJTAGIDCode {
		t.Errorf("JTAG IDCODE = 0x%08X", v)
	}

	only, _ := New(Config{SWD: target.SWD()})
	if err := only.SetDP(probe.KindJTAG); !errors.Is(err, ErrNoTransport) {
		t.Errorf("SetDP(jtag) on an SWD-only DAP: err = %v", err)
	}
}

func TestAddAP(t *testing.T) {
	d, _ := newSimDAP(t, probe.KindSWD, sim.Config{},
		APConfig{Name: "mdm", Kind: APMDM, BaseAddress: 0x01000000},
		APConfig{Name: "ahb", Kind: APMem},
	)
	if got := d.DefaultAP().Name(); got != "mdm" {
		t.Errorf("DefaultAP = %s, want the first AP added", got)
	}
	if !d.APSELUsed(1) || !d.APSELUsed(0) || d.APSELUsed(2) {
		t.Errorf("APSEL occupancy wrong")
	}
	if _, err := d.AddAP(APConfig{Name: "ahb"}); !errors.Is(err, ErrDuplicateAP) {
		t.Errorf("duplicate name: err = %v", err)
	}
	// same APSEL under another name is allowed
	if _, err := d.AddAP(APConfig{Name: "alias", Kind: APMem}); err != nil {
		t.Errorf("shared APSEL: %v", err)
	}
	if _, err := d.AddAP(APConfig{Name: DefaultAPName, Kind: APMem, BaseAddress: 0x02000000}); err != nil {
		t.Fatal(err)
	}
	if got := d.DefaultAP().Name(); got != DefaultAPName {
		t.Errorf("DefaultAP = %s, want %s once it exists", got, DefaultAPName)
	}
	if len(d.APs()) != 4 {
		t.Errorf("APs = %d", len(d.APs()))
	}
	ap, _ := d.AP("mdm")
	var names []string
	for _, r := range ap.Registers() {
		names = append(names, r.Name)
	}
	if len(names) != 2 || names[0] != "STATUS" || names[1] != "CONTROL" {
		t.Errorf("MDM registers = %v", names)
	}
}

func TestDAPRouting(t *testing.T) {
	d, target := newSimDAP(t, probe.KindJTAG,
		sim.Config{APs: []sim.APModel{{Mem: true, CSW: 0x23000042}, {Base: 0x01000000, Regs: map[uint32]uint32{0x00: 0x3}}}},
		APConfig{Name: DefaultAPName, Kind: APMem},
		APConfig{Name: "mdm", Kind: APMDM, BaseAddress: 0x01000000},
	)
	if err := d.WriteRegister("", 0x12345678, WithAddress(0x20000010)); err != nil {
		t.Fatal(err)
	}
	if got := target.Peek(0x20000010); got != 0x12345678 {
		t.Errorf("memory = 0x%08X", got)
	}
	if v, err := d.ReadRegister("", WithAddress(0x20000010), WithExpect(0x12345678)); err != nil {
		t.Errorf("memory read: 0x%08X, %v", v, err)
	}
	if v, err := d.ReadRegister("STATUS", WithAP("mdm"), WithExpect(0x3)); err != nil {
		t.Errorf("MDM STATUS: 0x%08X, %v", v, err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no address", func() error { _, err := d.ReadRegister(""); return err }(), ErrNoAddress},
		{"value on MDM", d.WriteRegister("", 1, WithAP("mdm"), WithAddress(0)), ErrNotOwner},
		{"foreign register", func() error { _, err := d.ReadRegister("TAR", WithAP("mdm")); return err }(), ErrNotOwner},
		{"unknown AP", func() error { _, err := d.ReadRegister("CSW", WithAP("nope")); return err }(), ErrUnknownAP},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, tt.err, tt.want)
		}
		if IsNonFatal(tt.err) {
			t.Errorf("%s: %v should be fatal", tt.name, tt.err)
		}
	}
}

func TestDAPReset(t *testing.T) {
	d, _ := newSimDAP(t, probe.KindJTAG, sim.Config{})
	m := defaultMemAP(t, d)
	m.Write(0x20000000, 1, 32)
	d.Port().SetAPSelect(0x010000F0)
	d.Reset()
	if d.Port().Select() != 0 {
		t.Errorf("SELECT cache = 0x%08X after reset", d.Port().Select())
	}
	if _, ok := m.TAR(); ok {
		t.Errorf("TAR cache survived reset")
	}
	if ir, ok := d.Port().JTAGFramer().IR(); ok {
		t.Errorf("IR cache 0x%X survived reset", ir)
	}
}
