package adi

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

func offlineJTAG(cfg JTAGConfig) (*DebugPort, *probe.Recorder) {
	rec := probe.NewRecorder(nil, nil)
	return NewJTAGDP(rec.JTAG(), cfg), rec
}

func TestFrameDR(t *testing.T) {
	tests := []struct {
		data uint32
		a    uint8
		rnw  bool
		want uint64
	}{
		{0x00000000, 0, false, 0x0},
		{0x00000000, 3, true, 0x7},
		{0x12345678, 1, true, 0x12345678<<3 | 0b011},
		{0xFFFFFFFF, 2, false, 0x7FFFFFFFC},
	}
	for _, tt := range tests {
		got := FrameDR(tt.data, tt.a, tt.rnw)
		if got != tt.want {
			t.Errorf("FrameDR(0x%08X, %d, %v) = 0x%X, want 0x%X", tt.data, tt.a, tt.rnw, got, tt.want)
		}
		if got >= 1<<35 {
			t.Errorf("FrameDR(0x%08X) overflows 35 bits", tt.data)
		}
		d, a, rnw := UnframeDR(got)
		if d != tt.data || a != tt.a || rnw != tt.rnw {
			t.Errorf("UnframeDR(0x%X) = %X %d %v", got, d, a, rnw)
		}
	}
}

func TestJTAGReadDPSequence(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{})
	v, err := dp.ReadDP(CTRLSTAT, WithExpect(0xF0000000))
	if err != nil {
		t.Fatalf("ReadDP: %v", err)
	}
	if v != 0xF0000000 {
		t.Errorf("offline read = 0x%08X", v)
	}
	want := []probe.Op{
		{Kind: probe.OpWriteIR, Value: IRDPACC, Bits: 4},
		{Kind: probe.OpWriteDR, Value: FrameDR(0, 1, true), Bits: DRSize},
		{Kind: probe.OpCycle, Bits: 7},
		{Kind: probe.OpReadDR, Value: FrameDR(0, 3, true), Bits: DRSize,
			Scan:   probe.Scan{Mask: 0xFFFFFFFF << 3, Expect: 0xF0000000 << 3},
			Result: 0xF0000000 << 3},
		{Kind: probe.OpCycle, Bits: 7},
	}
	if diff := cmp.Diff(want, rec.Ops()); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestJTAGIRCached(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{})
	dp.ReadDP(CTRLSTAT)
	dp.ReadDP(CTRLSTAT)
	if n := rec.Count(probe.OpWriteIR); n != 1 {
		t.Errorf("IR writes = %d, want 1", n)
	}
	dp.ReadDP(IDCODE)
	dp.WriteDP(ABORT, AbortDAPAbort)
	ir := rec.Filter(probe.OpWriteIR)
	var got []uint64
	for _, op := range ir {
		got = append(got, op.Value)
	}
	if diff := cmp.Diff([]uint64{IRDPACC, IRIDCODE, IRAbort}, got); diff != "" {
		t.Errorf("IR sequence (-want +got):\n%s", diff)
	}
}

func TestJTAGIDCodeScan(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{})
	dp.ReadDP(IDCODE, WithExpect(0x4BA00477))
	dr := rec.Filter(probe.OpReadDR)
	if len(dr) != 1 || dr[0].Bits != 32 {
		t.Fatalf("IDCODE scans = %v", dr)
	}
	if dr[0].Scan.Expect != 0x4BA00477 {
		t.Errorf("IDCODE expect = 0x%X", dr[0].Scan.Expect)
	}
}

func TestJTAGSelectIdempotent(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{Filler: Filler{Mode: FillUnrolled}})
	for i := 0; i < 3; i++ {
		if _, err := dp.ReadAP(0x010000FC); err != nil {
			t.Fatal(err)
		}
	}
	dp.ReadAP(0x010000F8)
	selects := 0
	for _, op := range rec.Filter(probe.OpWriteDR) {
		if _, a, rnw := UnframeDR(op.Value); a == SELECT.A() && !rnw && op.Value>>3 != 0 {
			selects++
		}
	}
	if selects != 1 {
		t.Errorf("SELECT writes = %d, want 1", selects)
	}
	if got, want := dp.Select(), uint32(0x010000F0|0x00555505); got != want {
		t.Errorf("SELECT cache = 0x%08X, want 0x%08X", got, want)
	}
}

func TestJTAGReadAPSequence(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{})
	dp.ReadAP(0xFC, WithWaitStates(3))
	got := make([]string, 0)
	for _, op := range rec.Ops() {
		got = append(got, op.String())
	}
	want := []string{
		"write_ir 0xA/4",
		"write_dr 0x784/35", // SELECT = 0xF0
		"cycle 7",
		"write_ir 0xB/4",
		"write_dr 0x7/35", // APACC read, A=3
		"cycle 7",
		"cycle 3",
		"write_ir 0xA/4",
		"read_dr 0x7/35 -> 0x0 [x]",
		"cycle 7",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestJTAGWriteAPDelay(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{AccessDelay: -1, WriteAPDelay: 12})
	dp.SetAPSelect(0)
	dp.WriteAP(0x04, 0x20000000)
	cycles := rec.Filter(probe.OpCycle)
	if len(cycles) != 1 || cycles[0].Bits != 12 {
		t.Errorf("cycles = %v, want one of 12", cycles)
	}
}

func TestJTAGAttempts(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{})
	dp.WriteDP(CTRLSTAT, 0x50000000, WithAttempts(3))
	if n := rec.Count(probe.OpWriteDR); n != 3 {
		t.Errorf("DR scans = %d, want 3", n)
	}
}

func TestJTAGv6Select(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{Version: 6})
	if _, err := dp.ReadAP(0x1_0000_2DFC); err != nil {
		t.Fatal(err)
	}
	if dp.Select1() != 1 {
		t.Errorf("SELECT1 = 0x%X, want 1", dp.Select1())
	}
	if got := dp.Select(); got != 0x2DF5 {
		t.Errorf("SELECT = 0x%08X, want 0x00002DF5", got)
	}
	n := rec.Count(probe.OpWriteDR)
	dp.ReadAP(0x1_0000_2DF8)
	if rec.Count(probe.OpWriteDR)-n != 1 {
		t.Errorf("second read in the same bank reprogrammed SELECT")
	}
	// CTRL/STAT lives in bank 0
	dp.ReadDP(CTRLSTAT)
	if dp.Select()&0xF != 0 {
		t.Errorf("DPBANKSEL = %d after CTRL/STAT, want 0", dp.Select()&0xF)
	}
}

func TestJTAGv6ReadAck(t *testing.T) {
	dp, rec := offlineJTAG(JTAGConfig{Version: 6, ReadAckEnabled: true})
	dp.ReadAP(0x2D00)
	dr := rec.Filter(probe.OpReadDR)
	last := dr[len(dr)-1].Scan
	if last.Mask&7 != 7 || last.Expect&7 != ReadAckDefault {
		t.Errorf("AP collect scan = %v, want ack 0b100 under mask", last)
	}
	rec.Reset()
	dp.ReadDP(CTRLSTAT)
	for _, op := range rec.Filter(probe.OpReadDR) {
		if op.Scan.Mask&7 != 0 {
			t.Errorf("DP collect judged the acknowledge: %v", op.Scan)
		}
	}
}
