package main

import "github.com/OpenTraceLab/OpenTraceADI/cmd/armdebug/cmd"

func main() {
	cmd.Execute()
}
