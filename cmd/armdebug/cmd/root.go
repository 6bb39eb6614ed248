package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/adi"
)

var (
	// Global flags
	verbose    bool
	targetPath string
	adapter    string
	dpKind     string
	usbID      string
	trace      bool
	noColor    bool

	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "armdebug",
	Short: "ARM Debug Interface (ADIv5/ADIv6) access tool",
	Long: `Drive the debug port and access ports of an ARM target over JTAG or SWD.

Examples:
  armdebug idcode                                  # Read the JTAG-DP IDCODE of the simulator
  armdebug idcode --dp swd                         # Read the SW-DP DPIDR
  armdebug run -e "mem read 0x20000000" --trace    # Run one statement and show the wire traffic
  armdebug run --target board.yaml init.dap        # Run a script against a described target
  armdebug interfaces                              # List CMSIS-DAP probes`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&targetPath, "target", "t", "", "YAML target description")
	rootCmd.PersistentFlags().StringVarP(&adapter, "adapter", "a", "sim", "adapter type (sim, cmsisdap)")
	rootCmd.PersistentFlags().StringVar(&dpKind, "dp", "", "debug port to use (jtag, swd); overrides the target description")
	rootCmd.PersistentFlags().StringVar(&usbID, "usb", "2E8A:000C", "cmsisdap: probe VID:PID")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "print every link primitive")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func setupLogging() {
	formatter := &prefixed.TextFormatter{
		DisableColors:   noColor,
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	}
	logger.SetFormatter(formatter)
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	adi.SetLogger(logger)
	color.NoColor = color.NoColor || noColor
}
