package cmsisdap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProtocolEncode(t *testing.T) {
	p := NewProtocol(64)
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"info", p.EncodeInfo(InfoPacketSize), []byte{CmdInfo, InfoPacketSize}},
		{"connect swd", p.EncodeConnect(PortSWD), []byte{CmdConnect, PortSWD}},
		{"clock", p.EncodeSetClock(1_000_000), []byte{CmdSWJClock, 0x40, 0x42, 0x0F, 0x00}},
		{"jtag configure", p.EncodeJTAGConfigure([]byte{4, 5}), []byte{CmdJTAGConfigure, 2, 4, 5}},
		{"swd configure", p.EncodeSWDConfigure(1, true), []byte{CmdSWDConfigure, 0x04}},
		{"swj", p.EncodeSWJSequence(12, []byte{0xFF, 0x0F, 0xAA}), []byte{CmdSWJSequence, 12, 0xFF, 0x0F}},
		{"jtag sequence", p.EncodeJTAGSequence([]JTAGSequence{
			NewJTAGSequence(8, false, true, []byte{0xAA}),
			NewJTAGSequence(64, true, false, make([]byte, 8)),
		}), append([]byte{CmdJTAGSequence, 2, 0x88, 0xAA, 0x40}, make([]byte, 8)...)},
		{"swd sequence", p.EncodeSWDSequence([]SWDSequence{
			NewSWDSequence(8, false, []byte{0xA5}),
			NewSWDSequence(3, true, []byte{0xFF}),
		}), []byte{CmdSWDSequence, 2, 0x08, 0xA5, 0x83}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestProtocolDecodeErrors(t *testing.T) {
	p := NewProtocol(64)
	tests := []struct {
		name string
		err  error
	}{
		{"short", p.DecodeSetClock([]byte{CmdSWJClock})},
		{"wrong id", p.DecodeSetClock([]byte{CmdConnect, StatusOK})},
		{"status", p.DecodeResetTarget([]byte{CmdResetTarget, StatusError})},
		{"connect failed", func() error { _, err := p.DecodeConnect([]byte{CmdConnect, PortDefault}); return err }()},
		{"incomplete tdo", func() error {
			_, err := p.DecodeJTAGSequence([]byte{CmdJTAGSequence, StatusOK, 0x01},
				[]JTAGSequence{NewJTAGSequence(16, false, true, make([]byte, 2))})
			return err
		}()},
		{"incomplete swdio", func() error {
			_, err := p.DecodeSWDSequence([]byte{CmdSWDSequence, StatusOK},
				[]SWDSequence{NewSWDSequence(32, true, nil)})
			return err
		}()},
	}
	for _, tt := range tests {
		if tt.err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestProtocolDecode(t *testing.T) {
	p := NewProtocol(64)
	id, err := p.DecodeJTAGIDCODE([]byte{CmdJTAGIDCODE, StatusOK, 0x77, 0x04, 0xA0, 0x4B})
	if err != nil || id != 0x4BA00477 {
		t.Errorf("IDCODE = 0x%08X, %v", id, err)
	}
	s, err := p.DecodeInfoString([]byte{CmdInfo, 4, 'D', 'A', 'P', 0})
	if err != nil || s != "DAP" {
		t.Errorf("info = %q, %v", s, err)
	}
	seqs := []SWDSequence{
		NewSWDSequence(8, false, []byte{0x00}),
		NewSWDSequence(3, true, nil),
		NewSWDSequence(33, true, nil),
	}
	got, err := p.DecodeSWDSequence([]byte{CmdSWDSequence, StatusOK, 0x01, 1, 2, 3, 4, 1}, seqs)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]byte{{0x01}, {1, 2, 3, 4, 1}}, got); diff != "" {
		t.Errorf("SWDIO data (-want +got):\n%s", diff)
	}
	if s := NewJTAGSequence(64, false, false, nil); s.TCKCount() != 64 || s.Info != 0 {
		t.Errorf("64-clock sequence info = 0x%02X", s.Info)
	}
}
