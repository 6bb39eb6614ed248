package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

var (
	writeColor = color.New(color.FgYellow)
	readColor  = color.New(color.FgCyan)
	idleColor  = color.New(color.Faint)
	failColor  = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
)

func printOp(op probe.Op) {
	c := writeColor
	switch op.Kind {
	case probe.OpReadIR, probe.OpReadDR, probe.OpGet:
		c = readColor
	case probe.OpCycle, probe.OpDIOZero:
		c = idleColor
	}
	fmt.Fprintln(os.Stdout, c.Sprintf("  | %s", op))
}
