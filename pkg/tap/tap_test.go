package tap

import "testing"

func TestNextStateTable(t *testing.T) {
	cases := []struct {
		start State
		tms   bool
		end   State
	}{
		{StateTestLogicReset, false, StateRunTestIdle},
		{StateTestLogicReset, true, StateTestLogicReset},
		{StateRunTestIdle, true, StateSelectDRScan},
		{StateSelectDRScan, false, StateCaptureDR},
		{StateShiftDR, true, StateExit1DR},
		{StateExit2DR, false, StateShiftDR},
		{StateSelectIRScan, true, StateTestLogicReset},
		{StateCaptureIR, false, StateShiftIR},
		{StatePauseIR, true, StateExit2IR},
		{StateUpdateIR, false, StateRunTestIdle},
	}
	for _, tc := range cases {
		if got := NextState(tc.start, tc.tms); got != tc.end {
			t.Fatalf("NextState(%s, %v) = %s, want %s", tc.start, tc.tms, got, tc.end)
		}
	}
}

func TestPathFromIdle(t *testing.T) {
	cases := []struct {
		to   State
		want []bool
	}{
		{StateShiftDR, []bool{true, false, false}},
		{StateShiftIR, []bool{true, true, false, false}},
		{StateRunTestIdle, nil},
		{StateTestLogicReset, []bool{true, true, true}},
	}
	for _, tc := range cases {
		t.Run(tc.to.String(), func(t *testing.T) {
			got, err := Path(StateRunTestIdle, tc.to)
			if err != nil {
				t.Fatalf("Path: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Path = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Path = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestPathInvalid(t *testing.T) {
	if _, err := Path(State(42), StateShiftDR); err == nil {
		t.Fatal("expected error for invalid start state")
	}
}

func TestScanReturnsToIdle(t *testing.T) {
	c := NewController()
	c.Clock(false)

	tms, lead, err := c.Scan(false, 35)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if lead != 3 {
		t.Fatalf("lead = %d, want 3", lead)
	}
	// 3 approach + 35 payload + Update-DR + Run-Test/Idle
	if len(tms) != 3+35+2 {
		t.Fatalf("len(tms) = %d, want 40", len(tms))
	}
	if !tms[lead+34] || tms[lead+33] {
		t.Fatal("only the final payload bit should carry TMS=1")
	}
	if c.State() != StateRunTestIdle {
		t.Fatalf("State() = %s, want RunTestIdle", c.State())
	}

	tms, lead, err = c.Scan(true, 4)
	if err != nil {
		t.Fatalf("Scan IR: %v", err)
	}
	if lead != 4 || len(tms) != 4+4+2 {
		t.Fatalf("IR scan lead=%d len=%d", lead, len(tms))
	}
}

func TestResetAndIdle(t *testing.T) {
	c := NewController()
	c.Clock(false)
	c.Clock(true)
	if got := len(c.Reset()); got != 5 {
		t.Fatalf("reset length = %d", got)
	}
	if c.State() != StateTestLogicReset {
		t.Fatalf("State() = %s after reset", c.State())
	}
	tms, err := c.Idle(7)
	if err != nil {
		t.Fatalf("Idle: %v", err)
	}
	if len(tms) != 8 {
		t.Fatalf("Idle from reset = %d clocks, want 8", len(tms))
	}
	for _, b := range tms {
		if b {
			t.Fatal("idle clocks must hold TMS low")
		}
	}
}
