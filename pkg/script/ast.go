// Package script reads and runs DAP access scripts: short line-oriented
// programs of DP, AP, MEM-AP and named register accesses with optional
// expectations.
//
//	use swd
//	dp write CTRL/STAT 0x50000000
//	dp read CTRL/STAT expect 0xF0000000 mask 0xF0000000
//	mem write 0x20000000 0xDEADBEEF
//	mem read 0x20000000 size 16 expect 0xBEEF
//	reg read STATUS on mdm
package script

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Script is a parsed script.
type Script struct {
	Statements []*Statement `( @@ ";"? )*`
}

// Statement is one script line.
type Statement struct {
	Pos lexer.Position

	Use    *Use    `  @@`
	Reset  *Reset  `| @@`
	Idle   *Idle   `| @@`
	Access *Access `| @@`
}

// Use switches the active debug port.
type Use struct {
	Transport string `"use" @("jtag" | "swd")`
}

// Reset drops every DP and AP cache.
type Reset struct {
	Keyword string `@"reset"`
}

// Idle clocks the link.
type Idle struct {
	Cycles Number `"idle" @Int`
}

// Access is a register or memory access.
type Access struct {
	Space     string      `@("dp" | "ap" | "mem" | "reg")`
	Op        string      `@("read" | "write" | "write_read")`
	Target    Target      `@@`
	Value     *Number     `@Int?`
	Modifiers []*Modifier `@@*`
}

// Target is a register name or an address.
type Target struct {
	Name string  `  @Ident`
	Addr *Number `| @Int`
}

func (t Target) String() string {
	if t.Addr != nil {
		return "0x" + strings.ToUpper(strconv.FormatUint(uint64(*t.Addr), 16))
	}
	return t.Name
}

// Modifier adjusts an access.
type Modifier struct {
	Key   string `( @("expect" | "mask" | "size" | "attempts" | "wait")`
	Value Number `  @Int`
	On    string `| "on" @Ident`
	Store bool   `| @"store" )`
}

// Number is an integer literal in decimal, 0x hex or 0b binary, with
// optional '_' separators.
type Number uint64

// Capture implements participle.Capture.
func (n *Number) Capture(values []string) error {
	v, err := strconv.ParseUint(values[0], 0, 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}
