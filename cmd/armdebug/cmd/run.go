package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/script"
)

var (
	inline    []string
	keepGoing bool
)

var runCmd = &cobra.Command{
	Use:   "run [script...]",
	Short: "Run DAP access scripts",
	Long: `Run one or more access scripts against the target. Each statement is printed with
the value it read. Mismatching expectations are reported and the script carries on; any
other error stops it.

Statements:
  use jtag|swd
  reset
  idle N
  dp  read|write|write_read REGISTER [VALUE] [modifiers]
  ap  read|write|write_read ADDRESS  [VALUE] [modifiers]
  mem read|write|write_read ADDRESS  [VALUE] [modifiers]
  reg read|write|write_read NAME     [VALUE] [modifiers]

Modifiers: expect V, mask M, size 8|16|32, attempts N, wait N, on AP, store

Examples:
  armdebug run -e "dp write CTRL/STAT 0x50000000" -e "dp read CTRL/STAT expect 0xF0000000"
  armdebug run --dp swd --trace testdata/powerup.dap`,
	RunE: runScripts,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&inline, "exec", "e", nil, "statement to run (repeatable)")
	runCmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "exit successfully even when expectations fail")
}

func runScripts(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(inline) == 0 {
		return fmt.Errorf("nothing to run: give a script file or -e")
	}
	parser, err := script.NewParser()
	if err != nil {
		return err
	}
	var scripts []*script.Script
	for _, path := range args {
		sc, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		scripts = append(scripts, sc)
	}
	if len(inline) > 0 {
		sc, err := parser.ParseString(strings.Join(inline, "\n"))
		if err != nil {
			return err
		}
		scripts = append(scripts, sc)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	runner := script.NewRunner(s.dap, logger)
	runner.OnResult = printResult

	total, failed := 0, 0
	for _, sc := range scripts {
		results, err := runner.Run(context.Background(), sc)
		total += len(results)
		failed += script.Failed(results)
		if err != nil {
			return err
		}
	}

	fmt.Printf("%d statement(s), %d failed\n", total, failed)
	if failed > 0 && !keepGoing {
		return fmt.Errorf("%d statement(s) failed", failed)
	}
	return nil
}

func printResult(res script.Result) {
	switch {
	case res.Err != nil:
		fmt.Printf("%-40s %s\n", res.Statement, failColor.Sprintf("FAIL %v", res.Err))
	case res.HasValue:
		fmt.Printf("%-40s %s\n", res.Statement, okColor.Sprintf("0x%08X", res.Value))
	default:
		fmt.Printf("%-40s %s\n", res.Statement, okColor.Sprint("ok"))
	}
}
