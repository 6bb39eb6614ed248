package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceADI/internal/config"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/adi"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe/cmsisdap"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/sim"
)

// session is an open DAP with whatever has to be released afterwards.
type session struct {
	dap    *adi.DAP
	target *config.Target
	sim    *sim.Target
	close  func() error
}

func (s *session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func loadTarget() (*config.Target, error) {
	t := config.Default()
	if targetPath != "" {
		var err error
		if t, err = config.Load(targetPath); err != nil {
			return nil, err
		}
	}
	switch dpKind {
	case "":
	case "jtag":
		if t.JTAG == nil {
			t.JTAG = &config.JTAG{}
		}
		t.Transport = dpKind
	case "swd":
		if t.SWD == nil {
			t.SWD = &config.SWD{}
		}
		t.Transport = dpKind
	default:
		return nil, fmt.Errorf("unknown debug port %q (want jtag or swd)", dpKind)
	}
	return t, nil
}

func parseUSBID(s string) (uint16, uint16, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --usb %q, want VID:PID", s)
	}
	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid vendor ID %q: %w", parts[0], err)
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid product ID %q: %w", parts[1], err)
	}
	return uint16(vid), uint16(pid), nil
}

func openSession() (*session, error) {
	t, err := loadTarget()
	if err != nil {
		return nil, err
	}
	kind, err := t.Active()
	if err != nil {
		return nil, err
	}

	s := &session{target: t}
	var jtag probe.JTAG
	var swd probe.SWD
	switch adapter {
	case "sim", "simulator":
		s.sim = t.NewSim(logger)
		jtag, swd = s.sim.JTAG(), s.sim.SWD()
	case "cmsisdap", "cmsis-dap":
		vid, pid, err := parseUSBID(usbID)
		if err != nil {
			return nil, err
		}
		p, err := cmsisdap.Open(vid, pid, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to open probe: %w", err)
		}
		s.close = p.Close
		if kind == probe.KindSWD {
			swd = p
		} else {
			jtag = probe.NewShiftJTAG(p)
		}
	default:
		return nil, fmt.Errorf("unknown adapter %q (want sim or cmsisdap)", adapter)
	}

	if trace {
		rec := probe.NewRecorder(jtag, swd)
		rec.OnOp = printOp
		if jtag != nil {
			jtag = rec.JTAG()
		}
		if swd != nil {
			swd = rec.SWD()
		}
	}

	cfg, err := t.ADIConfig(jtag, swd, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	if s.dap, err = adi.New(cfg); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
