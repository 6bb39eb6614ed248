// Package tap models the IEEE 1149.1 TAP controller so that JTAG shifts can be
// expressed as TMS paths. The DAP layer keeps the controller parked in
// Run-Test/Idle between scans and uses Idle to burn settle cycles there.
package tap

import "fmt"

// State is one of the 16 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR

	numStates
)

var stateNames = [numStates]string{
	"TestLogicReset", "RunTestIdle",
	"SelectDRScan", "CaptureDR", "ShiftDR", "Exit1DR", "PauseDR", "Exit2DR", "UpdateDR",
	"SelectIRScan", "CaptureIR", "ShiftIR", "Exit1IR", "PauseIR", "Exit2IR", "UpdateIR",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Valid reports whether s names a real controller state.
func (s State) Valid() bool { return s < numStates }

// next[s][0] is the state after a TMS=0 clock, next[s][1] after TMS=1.
var next = [numStates][2]State{
	StateTestLogicReset: {StateRunTestIdle, StateTestLogicReset},
	StateRunTestIdle:    {StateRunTestIdle, StateSelectDRScan},
	StateSelectDRScan:   {StateCaptureDR, StateSelectIRScan},
	StateCaptureDR:      {StateShiftDR, StateExit1DR},
	StateShiftDR:        {StateShiftDR, StateExit1DR},
	StateExit1DR:        {StatePauseDR, StateUpdateDR},
	StatePauseDR:        {StatePauseDR, StateExit2DR},
	StateExit2DR:        {StateShiftDR, StateUpdateDR},
	StateUpdateDR:       {StateRunTestIdle, StateSelectDRScan},
	StateSelectIRScan:   {StateCaptureIR, StateTestLogicReset},
	StateCaptureIR:      {StateShiftIR, StateExit1IR},
	StateShiftIR:        {StateShiftIR, StateExit1IR},
	StateExit1IR:        {StatePauseIR, StateUpdateIR},
	StatePauseIR:        {StatePauseIR, StateExit2IR},
	StateExit2IR:        {StateShiftIR, StateUpdateIR},
	StateUpdateIR:       {StateRunTestIdle, StateSelectDRScan},
}

// NextState returns the state reached from current after one TCK with tms.
func NextState(current State, tms bool) State {
	if !current.Valid() {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	if tms {
		return next[current][1]
	}
	return next[current][0]
}

// Path returns the shortest TMS sequence leading from one state to another.
// The result is empty when from == to.
func Path(from, to State) ([]bool, error) {
	if !from.Valid() {
		return nil, fmt.Errorf("tap: invalid start state %d", from)
	}
	if !to.Valid() {
		return nil, fmt.Errorf("tap: invalid target state %d", to)
	}
	if from == to {
		return nil, nil
	}

	// Breadth-first search over the 16 states, remembering the edge used to
	// reach every state so the path can be rebuilt backwards.
	var (
		visited [numStates]bool
		prev    [numStates]State
		via     [numStates]bool
	)
	visited[from] = true
	queue := []State{from}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for bit := 0; bit < 2; bit++ {
			n := next[s][bit]
			if visited[n] {
				continue
			}
			visited[n], prev[n], via[n] = true, s, bit == 1
			if n == to {
				return unwind(from, to, &prev, &via), nil
			}
			queue = append(queue, n)
		}
	}
	return nil, fmt.Errorf("tap: no path from %s to %s", from, to)
}

func unwind(from, to State, prev *[numStates]State, via *[numStates]bool) []bool {
	var rev []bool
	for s := to; s != from; s = prev[s] {
		rev = append(rev, via[s])
	}
	out := make([]bool, len(rev))
	for i, b := range rev {
		out[len(rev)-1-i] = b
	}
	return out
}

// Controller tracks the TAP state on behalf of an adapter. It performs no I/O;
// callers forward the TMS bits it produces.
type Controller struct {
	state State
}

// NewController returns a controller in Test-Logic-Reset.
func NewController() *Controller {
	return &Controller{state: StateTestLogicReset}
}

// State reports the tracked state.
func (c *Controller) State() State { return c.state }

// Clock applies one TCK with tms.
func (c *Controller) Clock(tms bool) State {
	c.state = NextState(c.state, tms)
	return c.state
}

// Reset returns the five TMS=1 clocks that force Test-Logic-Reset from any
// state and applies them.
func (c *Controller) Reset() []bool {
	tms := []bool{true, true, true, true, true}
	for _, b := range tms {
		c.Clock(b)
	}
	return tms
}

// GoTo returns and applies the TMS path to target.
func (c *Controller) GoTo(target State) ([]bool, error) {
	tms, err := Path(c.state, target)
	if err != nil {
		return nil, err
	}
	for _, b := range tms {
		c.Clock(b)
	}
	return tms, nil
}

// Scan builds the full TMS stream for shifting bits through the IR or DR:
// the approach path into Shift-xR, bits-1 clocks with TMS=0, the final bit with
// TMS=1 (leaving via Exit1-xR), then the path back to Run-Test/Idle. lead is
// the number of approach clocks, so payload bit i is clocked at lead+i.
func (c *Controller) Scan(ir bool, bits int) (tms []bool, lead int, err error) {
	if bits <= 0 {
		return nil, 0, fmt.Errorf("tap: scan length must be positive, got %d", bits)
	}
	shift := StateShiftDR
	if ir {
		shift = StateShiftIR
	}
	approach, err := c.GoTo(shift)
	if err != nil {
		return nil, 0, err
	}
	tms = append(tms, approach...)
	for i := 0; i < bits-1; i++ {
		tms = append(tms, false)
	}
	tms = append(tms, true)
	c.Clock(true)
	tail, err := c.GoTo(StateRunTestIdle)
	if err != nil {
		return nil, 0, err
	}
	return append(tms, tail...), len(approach), nil
}

// Idle returns n TMS=0 clocks after moving to Run-Test/Idle.
func (c *Controller) Idle(n int) ([]bool, error) {
	tms, err := c.GoTo(StateRunTestIdle)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		tms = append(tms, false)
	}
	return tms, nil
}
