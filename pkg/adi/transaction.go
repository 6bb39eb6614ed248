package adi

import (
	"math/rand"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// Transaction carries the per-call knobs of one register access. It is built
// from Options and discarded once the access has been framed.
type Transaction struct {
	Attempts   int
	Mask       uint32
	Expect     uint32
	HasExpect  bool
	Store      bool
	WaitStates int
	// ParkCycles overrides the SWD idle count after a DP access.
	ParkCycles int
	// ReadAck overrides the JTAG-DP v6 RDBUFF acknowledge check.
	ReadAck    uint8
	Address    uint64
	HasAddress bool
	AP         string
	// Junk marks a pipeline filler read whose data is never judged.
	Junk bool
}

// Option adjusts a Transaction.
type Option func(*Transaction)

// WithAttempts repeats the framed access n times.
func WithAttempts(n int) Option { return func(t *Transaction) { t.Attempts = n } }

// WithMask sets the comparison mask (default all ones).
func WithMask(m uint32) Option { return func(t *Transaction) { t.Mask = m } }

// WithExpect sets the value a read is expected to return.
func WithExpect(v uint32) Option {
	return func(t *Transaction) { t.Expect, t.HasExpect = v, true }
}

// WithStore captures the read data instead of comparing it.
func WithStore() Option { return func(t *Transaction) { t.Store = true } }

// WithWaitStates inserts n idle cycles between a posted AP read and the
// RDBUFF read that collects it.
func WithWaitStates(n int) Option { return func(t *Transaction) { t.WaitStates += n } }

// WithParkCycles overrides the SWD line park after a DP access.
func WithParkCycles(n int) Option { return func(t *Transaction) { t.ParkCycles = n } }

// WithReadAck checks the JTAG-DP v6 acknowledge on RDBUFF reads.
func WithReadAck(ack uint8) Option { return func(t *Transaction) { t.ReadAck = ack } }

// WithAddress supplies the target address for a data value access.
func WithAddress(a uint64) Option {
	return func(t *Transaction) { t.Address, t.HasAddress = a, true }
}

// WithAP routes a DAP level access to a named access port.
func WithAP(name string) Option { return func(t *Transaction) { t.AP = name } }

func newTransaction(opts []Option) *Transaction {
	t := &Transaction{Attempts: 1, Mask: 0xFFFFFFFF}
	for _, o := range opts {
		o(t)
	}
	if t.Attempts < 1 {
		t.Attempts = 1
	}
	return t
}

// junk returns a copy with the comparison and store stripped.
func (t *Transaction) junk() *Transaction {
	j := *t
	j.HasExpect, j.Store, j.Junk = false, false, true
	return &j
}

// scan converts the comparison descriptor to a link scan of bits width,
// shifted left by shift.
func (t *Transaction) scan(shift uint) probe.Scan {
	switch {
	case t.Junk:
		return probe.DontCare
	case t.Store:
		return probe.Scan{Mask: uint64(t.Mask) << shift, Store: true}
	case t.HasExpect:
		return probe.Scan{Mask: uint64(t.Mask) << shift, Expect: uint64(t.Expect&t.Mask) << shift}
	}
	return probe.DontCare
}

func (t *Transaction) check(port, reg string, got uint32) error {
	if t.Junk || t.Store || !t.HasExpect || got&t.Mask == t.Expect&t.Mask {
		return nil
	}
	return &MismatchError{Port: port, Register: reg, Got: got, Want: t.Expect & t.Mask, Mask: t.Mask}
}

// FillMode selects the don't-care data driven during read requests and into
// reserved SELECT bits.
type FillMode uint8

const (
	// FillCompress drives zeros.
	FillCompress FillMode = iota
	// FillUnrolled drives 0x55555555.
	FillUnrolled
	// FillRandom drives pseudo-random words from a seeded source.
	FillRandom
	// FillFixed drives Filler.Value.
	FillFixed
)

// Filler produces don't-care words.
type Filler struct {
	Mode  FillMode
	Value uint32
	Seed  int64

	rng *rand.Rand
}

// ParseFillMode accepts compress, unrolled, random or fixed.
func ParseFillMode(s string) (FillMode, bool) {
	switch s {
	case "", "compress":
		return FillCompress, true
	case "unrolled":
		return FillUnrolled, true
	case "random":
		return FillRandom, true
	case "fixed":
		return FillFixed, true
	}
	return 0, false
}

// Next returns the next don't-care word.
func (f *Filler) Next() uint32 {
	switch f.Mode {
	case FillUnrolled:
		return 0x55555555
	case FillRandom:
		if f.rng == nil {
			f.rng = rand.New(rand.NewSource(f.Seed))
		}
		return f.rng.Uint32()
	case FillFixed:
		return f.Value
	}
	return 0
}
