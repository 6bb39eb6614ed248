package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/adi"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

func TestLoadKinetis(t *testing.T) {
	tgt, err := Load("testdata/kinetis.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if kind, _ := tgt.Active(); kind != probe.KindSWD {
		t.Errorf("Active = %s", kind)
	}
	s := tgt.NewSim(nil)
	cfg, err := tgt.ADIConfig(s.JTAG(), s.SWD(), nil)
	if err != nil {
		t.Fatalf("ADIConfig: %v", err)
	}
	if cfg.JTAGConfig.Filler.Mode != adi.FillUnrolled {
		t.Errorf("filler = %v", cfg.JTAGConfig.Filler.Mode)
	}
	if len(cfg.APs) != 2 || cfg.APs[1].Kind != adi.APMDM || cfg.APs[1].RegAccessWait != 4 {
		t.Fatalf("APs = %+v", cfg.APs)
	}
	if r := cfg.APs[1].Registers; len(r) != 1 || r[0].Name != "IDR" || r[0].Access != adi.Readable {
		t.Errorf("mdm registers = %+v", r)
	}

	d, err := adi.New(cfg)
	if err != nil {
		t.Fatalf("adi.New: %v", err)
	}
	if d.Port().Kind() != probe.KindSWD {
		t.Errorf("active port = %s", d.Port())
	}
	v, err := d.ReadRegister("", adi.WithAddress(0x20000000))
	if err != nil || v != 0xDEADBEEF {
		t.Errorf("memory = 0x%08X, %v", v, err)
	}
	v, err = d.ReadRegister("IDR", adi.WithAP("mdm"))
	if err != nil || v != 0x001C0000 {
		t.Errorf("mdm IDR = 0x%08X, %v", v, err)
	}
	if err := d.WriteRegister("IDR", 0, adi.WithAP("mdm")); !errors.Is(err, adi.ErrReadOnly) {
		t.Errorf("IDR write = %v", err)
	}
}

func TestLoadV6(t *testing.T) {
	tgt, err := Load("testdata/v6.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tgt.SWD != nil {
		t.Errorf("SWD section should stay empty")
	}
	cfg, err := tgt.ADIConfig(probe.NewRecorder(nil, nil).JTAG(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	j := cfg.JTAGConfig
	if j.Version != 6 || !j.ReadAckEnabled || j.ReadAck != 0 {
		t.Errorf("JTAGConfig = %+v", j)
	}
	if j.Filler.Mode != adi.FillRandom || j.Filler.Seed != 7 {
		t.Errorf("filler = %+v", j.Filler)
	}
	if sc := tgt.SimConfig(nil); sc.Version != 6 || len(sc.APs) != 1 || sc.APs[0].Base != 0x2D00 {
		t.Errorf("SimConfig = %+v", sc)
	}
}

func TestReadAckValue(t *testing.T) {
	tgt, err := Parse([]byte("jtag:\n  version: 6\n  read_ack: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ra := tgt.JTAG.ReadAck; !ra.Enabled || ra.Value != 2 {
		t.Errorf("ReadAck = %+v", ra)
	}
}

func TestParseDefaults(t *testing.T) {
	tgt, err := Parse([]byte("name: bare\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tgt.JTAG == nil {
		t.Fatal("a description without ports should get a JTAG-DP")
	}
	if kind, _ := tgt.Active(); kind != probe.KindJTAG {
		t.Errorf("Active = %s", kind)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown key", "jtag:\n  acces_delay: 3\n", "acces_delay"},
		{"bad transport", "transport: usb\n", "usb"},
		{"missing section", "transport: swd\njtag: {}\n", "no section"},
		{"bad version", "jtag:\n  version: 4\n", "version"},
		{"bad filler", "jtag:\n  filler: noisy\n", "noisy"},
		{"duplicate ap", "aps:\n  - name: a\n  - name: a\n", "already defined"},
		{"bad kind", "aps:\n  - name: a\n    kind: cache\n", "cache"},
		{"bad access", "aps:\n  - name: a\n    registers:\n      - {name: x, access: rx}\n", "rx"},
		{"wide ack", "jtag:\n  read_ack: 9\n", "3 bits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	tgt := Default()
	s := tgt.NewSim(nil)
	cfg, err := tgt.ADIConfig(s.JTAG(), s.SWD(), nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := adi.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.MemAP(adi.DefaultAPName); !ok {
		t.Error("default target has no mem_ap")
	}
}
