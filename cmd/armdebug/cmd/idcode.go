package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/adi"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/idcode"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/idcode/deviceinfo"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

var idcodeCmd = &cobra.Command{
	Use:   "idcode",
	Short: "Read and decode the debug port identification register",
	Long: `Read IDCODE through the JTAG-DP IDCODE instruction, or DPIDR over SWD, and decode
the designer, part number and DP architecture version.

Examples:
  armdebug idcode
  armdebug idcode --dp swd --adapter cmsisdap`,
	RunE: runIDCode,
}

func init() {
	rootCmd.AddCommand(idcodeCmd)
}

func runIDCode(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	dp := s.dap.Port()
	raw, err := dp.ReadDP(adi.IDCODE)
	if err != nil {
		return fmt.Errorf("read IDCODE: %w", err)
	}

	var info deviceinfo.DeviceInfo
	if dp.Kind() == probe.KindSWD {
		fmt.Printf("DPIDR:        %s\n", idcode.ParseDPIDR(raw))
		info = deviceinfo.LookupDPIDR(raw)
	} else {
		fmt.Printf("IDCODE:       %s\n", idcode.ParseIDCode(raw))
		info = deviceinfo.LookupIDCode(raw)
	}
	fmt.Printf("Debug port:   %s\n", dp)
	fmt.Printf("Manufacturer: %s\n", info.Manufacturer.Name)
	fmt.Printf("Device:       %s\n", info.Name)
	if info.Description != "" {
		fmt.Printf("Description:  %s\n", info.Description)
	}
	if info.ADIVersion != 0 {
		fmt.Printf("Architecture: ADIv%d\n", info.ADIVersion)
	}
	if verbose && info.IRLength != 0 {
		fmt.Printf("IR length:    %d bits\n", info.IRLength)
	}
	return nil
}
