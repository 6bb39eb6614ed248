package probe

import (
	"fmt"
	"strings"
)

// OpKind names one link primitive.
type OpKind uint8

const (
	OpWriteIR OpKind = iota
	OpReadIR
	OpWriteDR
	OpReadDR
	OpSend
	OpGet
	OpDIOZero
	OpCycle
)

var opNames = [...]string{"write_ir", "read_ir", "write_dr", "read_dr", "send", "get", "dio0", "cycle"}

func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", k)
}

// Op is one recorded link primitive. For reads Value holds the data shifted
// in (JTAG) and Result holds what came back.
type Op struct {
	Kind   OpKind
	Value  uint64
	Bits   int
	Scan   Scan
	Result uint64
}

func (o Op) String() string {
	var b strings.Builder
	b.WriteString(o.Kind.String())
	switch o.Kind {
	case OpCycle, OpDIOZero:
		fmt.Fprintf(&b, " %d", o.Bits)
	case OpGet, OpReadIR:
		fmt.Fprintf(&b, " %d bits -> 0x%X [%s]", o.Bits, o.Result, o.Scan)
	case OpReadDR:
		fmt.Fprintf(&b, " 0x%X/%d -> 0x%X [%s]", o.Value, o.Bits, o.Result, o.Scan)
	default:
		fmt.Fprintf(&b, " 0x%X/%d", o.Value, o.Bits)
	}
	return b.String()
}

// Recorder logs every primitive issued to it and forwards to the wrapped
// links when present. Without an inner link it behaves as a vector
// generator: reads return the expected value under the scan mask.
type Recorder struct {
	JTAGLink JTAG
	SWDLink  SWD

	// OnOp, when set, sees every primitive after it completes.
	OnOp func(Op)

	ops []Op
}

// NewRecorder returns a recorder forwarding to the given links; either may be
// nil.
func NewRecorder(j JTAG, s SWD) *Recorder {
	return &Recorder{JTAGLink: j, SWDLink: s}
}

// Ops returns a copy of the recorded primitives.
func (r *Recorder) Ops() []Op {
	return append([]Op(nil), r.ops...)
}

// Reset forgets the recorded primitives.
func (r *Recorder) Reset() { r.ops = r.ops[:0] }

// Count returns the number of recorded ops of kind k.
func (r *Recorder) Count(k OpKind) int {
	n := 0
	for _, op := range r.ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Filter returns recorded ops of the given kinds in issue order.
func (r *Recorder) Filter(kinds ...OpKind) []Op {
	var out []Op
	for _, op := range r.ops {
		for _, k := range kinds {
			if op.Kind == k {
				out = append(out, op)
				break
			}
		}
	}
	return out
}

func (r *Recorder) record(op Op) {
	r.ops = append(r.ops, op)
	if r.OnOp != nil {
		r.OnOp(op)
	}
}

func offline(scan Scan, bits int) uint64 {
	return scan.Expect & scan.Mask & Mask(bits)
}

// JTAG returns the recorder as a JTAG link. Idle clocks go to JTAGLink.
func (r *Recorder) JTAG() JTAG { return jtagView{r} }

// SWD returns the recorder as an SWD link. Idle clocks go to SWDLink.
func (r *Recorder) SWD() SWD { return swdView{r} }

type jtagView struct{ *Recorder }

func (v jtagView) Cycle(n int) error {
	if v.JTAGLink != nil {
		if err := v.JTAGLink.Cycle(n); err != nil {
			return err
		}
	}
	v.record(Op{Kind: OpCycle, Bits: n})
	return nil
}

type swdView struct{ *Recorder }

func (v swdView) Cycle(n int) error {
	if v.SWDLink != nil {
		if err := v.SWDLink.Cycle(n); err != nil {
			return err
		}
	}
	v.record(Op{Kind: OpCycle, Bits: n})
	return nil
}

func (r *Recorder) WriteIR(value uint32, size int) error {
	if r.JTAGLink != nil {
		if err := r.JTAGLink.WriteIR(value, size); err != nil {
			return err
		}
	}
	r.record(Op{Kind: OpWriteIR, Value: uint64(value), Bits: size})
	return nil
}

func (r *Recorder) ReadIR(size int, scan Scan) (uint32, error) {
	got := uint32(offline(scan, size))
	if r.JTAGLink != nil {
		v, err := r.JTAGLink.ReadIR(size, scan)
		if err != nil {
			return 0, err
		}
		got = v
	}
	r.record(Op{Kind: OpReadIR, Bits: size, Scan: scan, Result: uint64(got)})
	return got, nil
}

func (r *Recorder) WriteDR(value uint64, size int, scan Scan) error {
	if r.JTAGLink != nil {
		if err := r.JTAGLink.WriteDR(value, size, scan); err != nil {
			return err
		}
	}
	r.record(Op{Kind: OpWriteDR, Value: value, Bits: size, Scan: scan})
	return nil
}

func (r *Recorder) ReadDR(value uint64, size int, scan Scan) (uint64, error) {
	got := offline(scan, size)
	if r.JTAGLink != nil {
		v, err := r.JTAGLink.ReadDR(value, size, scan)
		if err != nil {
			return 0, err
		}
		got = v
	}
	r.record(Op{Kind: OpReadDR, Value: value, Bits: size, Scan: scan, Result: got})
	return got, nil
}

func (r *Recorder) SendData(value uint64, bits int) error {
	if r.SWDLink != nil {
		if err := r.SWDLink.SendData(value, bits); err != nil {
			return err
		}
	}
	r.record(Op{Kind: OpSend, Value: value & Mask(bits), Bits: bits})
	return nil
}

func (r *Recorder) GetData(bits int, scan Scan) (uint64, error) {
	got := offline(scan, bits)
	if r.SWDLink != nil {
		v, err := r.SWDLink.GetData(bits, scan)
		if err != nil {
			return 0, err
		}
		got = v
	}
	r.record(Op{Kind: OpGet, Bits: bits, Scan: scan, Result: got})
	return got, nil
}

func (r *Recorder) DIOToZero(cycles int) error {
	if r.SWDLink != nil {
		if err := r.SWDLink.DIOToZero(cycles); err != nil {
			return err
		}
	}
	r.record(Op{Kind: OpDIOZero, Bits: cycles})
	return nil
}
