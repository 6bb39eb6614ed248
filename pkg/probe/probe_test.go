package probe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScanMatches(t *testing.T) {
	s := Scan{Mask: 0xF0000000, Expect: 0xF0000000}
	if !s.Matches(0xF0000040) {
		t.Fatal("masked compare should ignore low bits")
	}
	if s.Matches(0x50000000) {
		t.Fatal("0x5 upper nibble should not match 0xF")
	}
	if DontCare.Compare() {
		t.Fatal("zero scan must not compare")
	}
	if (Scan{Mask: 1, Store: true}).Compare() {
		t.Fatal("store scans do not compare")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"jtag": KindJTAG, "SWD": KindSWD} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseKind("spi"); err == nil {
		t.Fatal("expected error for spi")
	}
}

func TestRecorderOffline(t *testing.T) {
	r := NewRecorder(nil, nil)
	swd := r.SWD()
	if err := swd.SendData(0xA5, 8); err != nil {
		t.Fatal(err)
	}
	got, err := swd.GetData(3, Scan{Mask: 0x7, Expect: 0x1})
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("offline GetData = %d, want expected value 1", got)
	}
	if err := swd.DIOToZero(10); err != nil {
		t.Fatal(err)
	}
	if err := swd.Cycle(2); err != nil {
		t.Fatal(err)
	}

	want := []Op{
		{Kind: OpSend, Value: 0xA5, Bits: 8},
		{Kind: OpGet, Bits: 3, Scan: Scan{Mask: 0x7, Expect: 0x1}, Result: 1},
		{Kind: OpDIOZero, Bits: 10},
		{Kind: OpCycle, Bits: 2},
	}
	if diff := cmp.Diff(want, r.Ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if r.Count(OpGet) != 1 {
		t.Fatalf("Count(OpGet) = %d", r.Count(OpGet))
	}
	r.Reset()
	if len(r.Ops()) != 0 {
		t.Fatal("Reset should clear ops")
	}
}

func TestShiftJTAGLoopback(t *testing.T) {
	lb := NewLoopback(AdapterInfo{Name: "loop"})
	j := NewShiftJTAG(lb)

	const dr = uint64(0x4_8765_4321)
	got, err := j.ReadDR(dr, 35, DontCare)
	if err != nil {
		t.Fatalf("ReadDR: %v", err)
	}
	if got != dr {
		t.Fatalf("ReadDR echo = 0x%X, want 0x%X", got, dr)
	}
	if err := j.WriteIR(0xA, 4); err != nil {
		t.Fatal(err)
	}
	if err := j.Cycle(7); err != nil {
		t.Fatal(err)
	}

	shifts := lb.Shifts()
	if len(shifts) != 3 {
		t.Fatalf("shifts = %d, want 3", len(shifts))
	}
	// five reset clocks, Test-Logic-Reset to Shift-DR, payload, exit to idle
	if shifts[0].Bits != 5+4+35+2 {
		t.Fatalf("first DR scan = %d clocks", shifts[0].Bits)
	}
	if shifts[1].Region != ShiftRegionIR || shifts[1].Bits != 4+4+2 {
		t.Fatalf("IR scan = %+v", shifts[1])
	}
	if shifts[2].Bits != 7 {
		t.Fatalf("idle = %d clocks, want 7", shifts[2].Bits)
	}
}

func TestPackBitsRoundTrip(t *testing.T) {
	in := []bool{true, false, true, true, false, false, false, true, true}
	packed := PackBits(in)
	if len(packed) != 2 || packed[0] != 0x8D || packed[1] != 0x01 {
		t.Fatalf("PackBits = %v", packed)
	}
	if diff := cmp.Diff(in, UnpackBits(packed, len(in))); diff != "" {
		t.Fatalf("UnpackBits mismatch:\n%s", diff)
	}
}

func TestValidateShiftBuffers(t *testing.T) {
	if _, err := ValidateShiftBuffers(nil, nil, 0); err == nil {
		t.Fatal("zero bits must fail")
	}
	if _, err := ValidateShiftBuffers([]byte{0}, nil, 9); err == nil {
		t.Fatal("short tms must fail")
	}
	n, err := ValidateShiftBuffers(nil, []byte{0, 0}, 9)
	if err != nil || n != 2 {
		t.Fatalf("ValidateShiftBuffers = %d, %v", n, err)
	}
}
