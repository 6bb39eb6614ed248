package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe/cmsisdap"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List available debug probes",
	Long: `Scan the host for CMSIS-DAP probes (Raspberry Pi Debug Probe, DAPLink, etc.) and print
a summary. The built-in simulator is always listed.`,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := cmsisdap.DiscoverInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("discover interfaces: %w", err)
	}

	fmt.Println("Detected debug interfaces:")
	for _, iface := range infos {
		fmt.Printf("  - %s [%s] (VID:PID %04X:%04X) transports: %s\n",
			iface.Label(), iface.Kind, iface.VendorID, iface.ProductID, iface.TransportList())
	}
	return nil
}
