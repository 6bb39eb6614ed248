package adi

import (
	"errors"
	"fmt"
)

// Non-fatal kinds. The request is skipped and the link is left untouched.
var (
	ErrUnknownRegister = errors.New("unknown register")
	ErrReadOnly        = errors.New("register is read-only")
	ErrWriteOnly       = errors.New("register is write-only")
	ErrUnsupported     = errors.New("register not implemented on this transport")
)

// Fatal kinds.
var (
	ErrNoTransport = errors.New("adi: neither JTAG nor SWD link configured")
	ErrNoAddress   = errors.New("no address given for a data value access")
	ErrNotOwner    = errors.New("register not owned by this port")
	ErrDuplicateAP = errors.New("access port already defined")
	ErrUnknownAP   = errors.New("unknown access port")
)

// AccessError reports a rejected register access.
type AccessError struct {
	Port     string
	Register string
	Op       string
	Err      error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Port, e.Op, e.Register, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// MismatchError reports a read whose data disagreed with the expectation
// under the comparison mask. The read itself completed.
type MismatchError struct {
	Port     string
	Register string
	Got      uint32
	Want     uint32
	Mask     uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: read %s: got 0x%08X, want 0x%08X (mask 0x%08X)",
		e.Port, e.Register, e.Got, e.Want, e.Mask)
}

// IsNonFatal reports whether err only describes a skipped or mismatching
// access, so that a sequence may carry on.
func IsNonFatal(err error) bool {
	if err == nil {
		return true
	}
	var mm *MismatchError
	if errors.As(err, &mm) {
		return true
	}
	return errors.Is(err, ErrUnknownRegister) ||
		errors.Is(err, ErrReadOnly) ||
		errors.Is(err, ErrWriteOnly) ||
		errors.Is(err, ErrUnsupported)
}
