package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	// Reset flags to prevent accumulation between tests
	verbose, trace, noColor, keepGoing = false, false, true, false
	targetPath, dpKind, adapter = "", "", "sim"
	inline = nil

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done
	return buf.String(), err
}

func TestCLIE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "jtag idcode",
			args: []string{"idcode"},
			wantContain: []string{
				"IDCODE:       0x4BA00477",
				"jtag-dp",
				"ARM Ltd",
				"ADIv5",
			},
		},
		{
			name: "swd dpidr",
			args: []string{"idcode", "--dp", "swd"},
			wantContain: []string{
				"DPIDR:        0x2BA01477",
				"DPv1",
				"sw-dp",
			},
		},
		{
			name: "script file",
			args: []string{"run", "--dp", "swd", "../testdata/powerup.dap"},
			wantContain: []string{
				"mem read 0x20000000",
				"0xCAFEF00D",
				"reg read IDR",
				"0x24770011",
				"6 statement(s), 0 failed",
			},
		},
		{
			name: "inline with trace",
			args: []string{"run", "--trace", "-e", "dp read IDCODE"},
			wantContain: []string{
				"write_ir 0xE/4",
				"dp read IDCODE",
				"0x4BA00477",
			},
		},
		{
			name:    "failed expectation",
			args:    []string{"run", "-e", "mem read 0x0 expect 0x1"},
			wantErr: true,
			wantContain: []string{
				"FAIL",
				"1 statement(s), 1 failed",
			},
		},
		{
			name: "keep going",
			args: []string{"run", "-k", "-e", "mem read 0x0 expect 0x1"},
			wantContain: []string{
				"1 statement(s), 1 failed",
			},
		},
		{
			name:    "nothing to run",
			args:    []string{"run"},
			wantErr: true,
		},
		{
			name:    "bad adapter",
			args:    []string{"idcode", "--adapter", "parallel"},
			wantErr: true,
		},
		{
			name:    "bad dp",
			args:    []string{"idcode", "--dp", "spi"},
			wantErr: true,
		},
		{
			name:    "parse error",
			args:    []string{"run", "-e", "dp poke IDCODE"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)
			if tt.wantErr && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestParseUSBID(t *testing.T) {
	vid, pid, err := parseUSBID("0d28:0204")
	if err != nil || vid != 0x0D28 || pid != 0x0204 {
		t.Errorf("parseUSBID = %04X:%04X, %v", vid, pid, err)
	}
	for _, bad := range []string{"", "0d28", "xyz:0204", "0d28:12345"} {
		if _, _, err := parseUSBID(bad); err == nil {
			t.Errorf("parseUSBID(%q): expected error", bad)
		}
	}
}
