package adi

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// DPRegister identifies a Debug Port register.
type DPRegister uint8

const (
	IDCODE DPRegister = iota
	ABORT
	CTRLSTAT
	SELECT
	RDBUFF
	WCR
	RESEND
	SELECT1

	numDPRegisters
)

// Access is the direction a register supports on a given transport. The zero
// value means the register does not exist there.
type Access uint8

const (
	Readable Access = 1 << iota
	Writable

	ReadWrite = Readable | Writable
)

func (a Access) String() string {
	switch a {
	case Readable:
		return "ro"
	case Writable:
		return "wo"
	case ReadWrite:
		return "rw"
	}
	return "-"
}

type dpRegInfo struct {
	name   string
	offset uint8
	// bank is the ADIv6 DPBANKSEL value, -1 when the register is not banked.
	bank int8
	jtag Access
	// jtag6 overrides jtag for JTAG-DP v6.
	jtag6 Access
	swd   Access
}

var dpRegs = [numDPRegisters]dpRegInfo{
	IDCODE:   {name: "IDCODE", offset: 0x0, bank: -1, jtag: Readable, jtag6: Readable, swd: Readable},
	ABORT:    {name: "ABORT", offset: 0x0, bank: -1, jtag: Writable, jtag6: Writable, swd: Writable},
	CTRLSTAT: {name: "CTRL/STAT", offset: 0x4, bank: 0, jtag: ReadWrite, jtag6: ReadWrite, swd: ReadWrite},
	SELECT:   {name: "SELECT", offset: 0x8, bank: -1, jtag: ReadWrite, jtag6: ReadWrite, swd: Writable},
	RDBUFF:   {name: "RDBUFF", offset: 0xC, bank: -1, jtag: Readable, jtag6: Readable, swd: Readable},
	WCR:      {name: "WCR", offset: 0x4, bank: 1, swd: ReadWrite},
	RESEND:   {name: "RESEND", offset: 0x8, bank: -1, swd: Readable},
	SELECT1:  {name: "SELECT1", offset: 0x4, bank: 5, jtag6: ReadWrite},
}

func (r DPRegister) valid() bool { return r < numDPRegisters }

func (r DPRegister) String() string {
	if r.valid() {
		return dpRegs[r].name
	}
	return fmt.Sprintf("DPRegister(%d)", uint8(r))
}

// Offset is the register's address in DP space; A[3:2] go on the wire.
func (r DPRegister) Offset() uint8 { return dpRegs[r].offset }

// A returns the two address bits carried by a DPACC/SWD request.
func (r DPRegister) A() uint8 { return dpRegs[r].offset >> 2 & 0x3 }

// Bank returns the ADIv6 DPBANKSEL for banked registers.
func (r DPRegister) Bank() (uint8, bool) {
	b := dpRegs[r].bank
	return uint8(b), b >= 0
}

// Access returns the supported direction for r on the given transport.
func (r DPRegister) Access(kind probe.Kind, version int) Access {
	if !r.valid() {
		return 0
	}
	info := dpRegs[r]
	switch {
	case kind == probe.KindSWD:
		return info.swd
	case kind == probe.KindJTAG && version >= 6:
		return info.jtag6
	case kind == probe.KindJTAG:
		return info.jtag
	}
	return 0
}

var dpAliases = map[string]DPRegister{
	"IDCODE":   IDCODE,
	"DPIDR":    IDCODE,
	"ABORT":    ABORT,
	"CTRLSTAT": CTRLSTAT,
	"SELECT":   SELECT,
	"RDBUFF":   RDBUFF,
	"WCR":      WCR,
	"RESEND":   RESEND,
	"SELECT1":  SELECT1,
}

// ParseDPRegister resolves a register name. Case, '/', '_' and '-' are
// ignored, so "CTRL/STAT", "ctrl_stat" and "ctrlstat" are the same register.
func ParseDPRegister(name string) (DPRegister, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '/', '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToUpper(name))
	r, ok := dpAliases[key]
	return r, ok
}

// DPRegisters lists every DP register identity.
func DPRegisters() []DPRegister {
	out := make([]DPRegister, 0, numDPRegisters)
	for r := DPRegister(0); r < numDPRegisters; r++ {
		out = append(out, r)
	}
	return out
}

// Well-known CTRL/STAT bits.
const (
	CtrlStatORunDetect    = 1 << 0
	CtrlStatStickyOrun    = 1 << 1
	CtrlStatStickyCmp     = 1 << 4
	CtrlStatStickyErr     = 1 << 5
	CtrlStatReadOK        = 1 << 6
	CtrlStatWDataErr      = 1 << 7
	CtrlStatCDbgRstReq    = 1 << 26
	CtrlStatCDbgRstAck    = 1 << 27
	CtrlStatCDbgPwrUpReq  = 1 << 28
	CtrlStatCDbgPwrUpAck  = 1 << 29
	CtrlStatCSysPwrUpReq  = 1 << 30
	CtrlStatCSysPwrUpAck  = 1 << 31
	SelectCtrlSel         = 1 << 0
	AbortDAPAbort         = 1 << 0
	AbortStkCmpClr        = 1 << 1
	AbortStkErrClr        = 1 << 2
	AbortWDErrClr         = 1 << 3
	AbortOrunErrClr       = 1 << 4
	PowerUpRequest        = CtrlStatCSysPwrUpReq | CtrlStatCDbgPwrUpReq
	PowerUpAcknowledge    = CtrlStatCSysPwrUpAck | CtrlStatCDbgPwrUpAck
)
