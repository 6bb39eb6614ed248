package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/adi"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// ErrSyntax reports a statement that parsed but cannot be executed as
// written, such as a write without a value.
var ErrSyntax = errors.New("script: malformed statement")

// Result is the outcome of one statement.
type Result struct {
	Line      int
	Statement string
	Value     uint32
	HasValue  bool
	Err       error
}

// Runner executes scripts against a DAP.
type Runner struct {
	DAP *adi.DAP
	Log logrus.FieldLogger

	// OnResult is called after every statement.
	OnResult func(Result)
}

// NewRunner returns a Runner for d.
func NewRunner(d *adi.DAP, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{DAP: d, Log: log.WithField("prefix", "script")}
}

// Run executes s. Skipped and mismatching accesses are logged and recorded
// in their Result; any other error stops the script and is returned.
func (r *Runner) Run(ctx context.Context, s *Script) ([]Result, error) {
	var results []Result
	for _, st := range s.Statements {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.exec(st)
		results = append(results, res)
		if r.OnResult != nil {
			r.OnResult(res)
		}
		if res.Err == nil {
			continue
		}
		if !adi.IsNonFatal(res.Err) {
			return results, fmt.Errorf("line %d: %s: %w", res.Line, res.Statement, res.Err)
		}
		r.Log.Warnf("line %d: %v", res.Line, res.Err)
	}
	return results, nil
}

// Failed counts results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

func (r *Runner) exec(st *Statement) Result {
	res := Result{Line: st.Pos.Line, Statement: st.String()}
	switch {
	case st.Use != nil:
		kind, err := probe.ParseKind(st.Use.Transport)
		if err == nil {
			err = r.DAP.SetDP(kind)
		}
		res.Err = err
	case st.Reset != nil:
		r.DAP.Reset()
	case st.Idle != nil:
		res.Err = r.DAP.Port().Cycle(int(st.Idle.Cycles))
	case st.Access != nil:
		res.Value, res.HasValue, res.Err = r.access(st.Access)
	}
	if res.HasValue && res.Err == nil {
		r.Log.Infof("%s = 0x%08X", res.Statement, res.Value)
	} else {
		r.Log.Debug(res.Statement)
	}
	return res
}

type plan struct {
	opts  []adi.Option
	on    string
	width int
}

func newPlan(mods []*Modifier) plan {
	p := plan{width: 32}
	for _, m := range mods {
		switch {
		case m.On != "":
			p.on = m.On
		case m.Store:
			p.opts = append(p.opts, adi.WithStore())
		}
		switch strings.ToLower(m.Key) {
		case "expect":
			p.opts = append(p.opts, adi.WithExpect(uint32(m.Value)))
		case "mask":
			p.opts = append(p.opts, adi.WithMask(uint32(m.Value)))
		case "attempts":
			p.opts = append(p.opts, adi.WithAttempts(int(m.Value)))
		case "wait":
			p.opts = append(p.opts, adi.WithWaitStates(int(m.Value)))
		case "size":
			p.width = int(m.Value)
		}
	}
	return p
}

func (r *Runner) access(a *Access) (uint32, bool, error) {
	op := strings.ToLower(a.Op)
	if op != "read" && a.Value == nil {
		return 0, false, fmt.Errorf("%w: %s needs a value", ErrSyntax, op)
	}
	var v uint32
	if a.Value != nil {
		v = uint32(*a.Value)
	}
	p := newPlan(a.Modifiers)

	switch strings.ToLower(a.Space) {
	case "dp":
		return r.dpAccess(op, a.Target, v, p)
	case "ap":
		return r.apAccess(op, a.Target, v, p)
	case "mem":
		return r.memAccess(op, a.Target, v, p)
	case "reg":
		return r.regAccess(op, a.Target, v, p)
	}
	return 0, false, fmt.Errorf("%w: unknown space %q", ErrSyntax, a.Space)
}

func (r *Runner) dpAccess(op string, t Target, v uint32, p plan) (uint32, bool, error) {
	if t.Name == "" {
		return 0, false, fmt.Errorf("%w: dp access needs a register name", ErrSyntax)
	}
	dp := r.DAP.Port()
	switch op {
	case "read":
		got, err := dp.ReadDPByName(t.Name, p.opts...)
		return got, true, err
	case "write":
		return 0, false, dp.WriteDPByName(t.Name, v, p.opts...)
	}
	reg, ok := adi.ParseDPRegister(t.Name)
	if !ok {
		return 0, false, dp.WriteDPByName(t.Name, v)
	}
	got, err := dp.WriteReadDP(reg, v, p.opts...)
	return got, true, err
}

func (r *Runner) apAccess(op string, t Target, v uint32, p plan) (uint32, bool, error) {
	if t.Addr == nil {
		return 0, false, fmt.Errorf("%w: ap access needs an address", ErrSyntax)
	}
	addr := uint64(*t.Addr)
	if p.on != "" {
		ap, ok := r.DAP.AP(p.on)
		if !ok {
			return 0, false, fmt.Errorf("%q: %w", p.on, adi.ErrUnknownAP)
		}
		addr += ap.BaseAddress()
	}
	dp := r.DAP.Port()
	switch op {
	case "read":
		got, err := dp.ReadAP(addr, p.opts...)
		return got, true, err
	case "write":
		return 0, false, dp.WriteAP(addr, v, p.opts...)
	}
	got, err := dp.WriteReadAP(addr, v, p.opts...)
	return got, true, err
}

func (r *Runner) memAccess(op string, t Target, v uint32, p plan) (uint32, bool, error) {
	if t.Addr == nil {
		return 0, false, fmt.Errorf("%w: mem access needs an address", ErrSyntax)
	}
	name := p.on
	if name == "" {
		ap := r.DAP.DefaultAP()
		if ap == nil {
			return 0, false, adi.ErrUnknownAP
		}
		name = ap.Name()
	}
	m, ok := r.DAP.MemAP(name)
	if !ok {
		return 0, false, fmt.Errorf("%q: not a MEM-AP: %w", name, adi.ErrUnknownAP)
	}
	addr := uint32(*t.Addr)
	switch op {
	case "read":
		got, err := m.Read(addr, p.width, p.opts...)
		return got, true, err
	case "write":
		return 0, false, m.Write(addr, v, p.width, p.opts...)
	}
	got, err := m.WriteRead(addr, v, p.width, p.opts...)
	return got, true, err
}

func (r *Runner) regAccess(op string, t Target, v uint32, p plan) (uint32, bool, error) {
	if t.Name == "" {
		return 0, false, fmt.Errorf("%w: reg access needs a register name", ErrSyntax)
	}
	opts := p.opts
	if p.on != "" {
		opts = append(opts, adi.WithAP(p.on))
	}
	name := strings.ToUpper(t.Name)
	if op != "read" {
		if err := r.DAP.WriteRegister(name, v, opts...); err != nil || op == "write" {
			return 0, false, err
		}
		opts = append([]adi.Option{adi.WithExpect(v)}, opts...)
	}
	got, err := r.DAP.ReadRegister(name, opts...)
	return got, true, err
}

// String renders the statement in canonical form.
func (st *Statement) String() string {
	switch {
	case st.Use != nil:
		return "use " + strings.ToLower(st.Use.Transport)
	case st.Reset != nil:
		return "reset"
	case st.Idle != nil:
		return fmt.Sprintf("idle %d", st.Idle.Cycles)
	case st.Access != nil:
		a := st.Access
		s := fmt.Sprintf("%s %s %s", strings.ToLower(a.Space), strings.ToLower(a.Op), a.Target)
		if a.Value != nil {
			s += fmt.Sprintf(" 0x%X", uint64(*a.Value))
		}
		return s
	}
	return ""
}
