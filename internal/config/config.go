// Package config loads YAML target descriptions: which debug ports exist,
// their timing, the access ports behind them and, for the simulator, the
// identity and contents of the modelled target.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/adi"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
	"github.com/OpenTraceLab/OpenTraceADI/pkg/sim"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid target description")

// Target is the root of a target description file.
type Target struct {
	Name string `yaml:"name"`
	// Transport is the debug port used first: jtag (default) or swd.
	Transport string `yaml:"transport"`
	JTAG      *JTAG  `yaml:"jtag"`
	SWD       *SWD   `yaml:"swd"`
	APs       []AP   `yaml:"aps"`
	Sim       Sim    `yaml:"sim"`
}

// JTAG configures the JTAG-DP.
type JTAG struct {
	Version      int     `yaml:"version"`
	IRSize       int     `yaml:"ir_size"`
	AccessDelay  int     `yaml:"access_delay"`
	WriteAPDelay int     `yaml:"write_ap_delay"`
	ReadAck      ReadAck `yaml:"read_ack"`
	SelectReset  uint32  `yaml:"select_reset"`
	Filler       Filler  `yaml:"filler"`
}

// SWD configures the SW-DP.
type SWD struct {
	ParkCycles  int    `yaml:"park_cycles"`
	SelectReset uint32 `yaml:"select_reset"`
}

// ReadAck is either a boolean (true selects the default ACK) or an explicit
// 3-bit value.
type ReadAck struct {
	Enabled bool
	Value   uint8
}

// UnmarshalYAML accepts "read_ack: true" as well as "read_ack: 4".
func (r *ReadAck) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var b bool
	if err := unmarshal(&b); err == nil {
		*r = ReadAck{Enabled: b}
		return nil
	}
	var v uint8
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("read_ack must be a boolean or a number: %w", err)
	}
	if v > 0b111 {
		return fmt.Errorf("read_ack 0x%X does not fit in 3 bits", v)
	}
	*r = ReadAck{Enabled: v != 0, Value: v}
	return nil
}

// Filler selects the don't-care data policy.
type Filler struct {
	Mode  string `yaml:"mode"`
	Value uint32 `yaml:"value"`
	Seed  int64  `yaml:"seed"`
}

// UnmarshalYAML accepts a bare mode name or a mapping.
func (f *Filler) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var mode string
	if err := unmarshal(&mode); err == nil {
		*f = Filler{Mode: mode}
		return nil
	}
	type plain Filler
	return unmarshal((*plain)(f))
}

// AP describes one access port.
type AP struct {
	Name          string     `yaml:"name"`
	Kind          string     `yaml:"kind"`
	Base          uint64     `yaml:"base"`
	RegAccessWait int        `yaml:"reg_access_wait"`
	MemAccessWait int        `yaml:"mem_access_wait"`
	Latency       int        `yaml:"latency"`
	CSWReset      uint32     `yaml:"csw_reset"`
	AXI           bool       `yaml:"axi"`
	Registers     []Register `yaml:"registers"`
}

// Register is a named AP register.
type Register struct {
	Name   string `yaml:"name"`
	Offset uint32 `yaml:"offset"`
	Access string `yaml:"access"`
}

// Sim describes the simulated target.
type Sim struct {
	JTAGIDCode uint32            `yaml:"jtag_idcode"`
	SWDIDCode  uint32            `yaml:"swd_idcode"`
	JTAGAck    uint8             `yaml:"jtag_ack"`
	SWDAck     uint8             `yaml:"swd_ack"`
	APs        []SimAP           `yaml:"aps"`
	Memory     map[uint32]uint32 `yaml:"memory"`
}

// SimAP is one AP of the simulated target.
type SimAP struct {
	Base uint64            `yaml:"base"`
	Mem  bool              `yaml:"mem"`
	IDR  uint32            `yaml:"idr"`
	CSW  uint32            `yaml:"csw"`
	CFG  uint32            `yaml:"cfg"`
	BASE uint32            `yaml:"base_reg"`
	Regs map[uint32]uint32 `yaml:"regs"`
}

// Default describes a target with both DPs and a single MEM-AP.
func Default() *Target {
	return &Target{Name: "default", Transport: "jtag", JTAG: &JTAG{}, SWD: &SWD{}}
}

// Load reads and validates the description at path.
func Load(path string) (*Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a description. Unknown keys are rejected.
func Parse(data []byte) (*Target, error) {
	t := &Target{}
	if err := yaml.UnmarshalStrict(data, t); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if t.JTAG == nil && t.SWD == nil {
		t.JTAG = &JTAG{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the description without building anything.
func (t *Target) Validate() error {
	if t.JTAG == nil && t.SWD == nil {
		return fmt.Errorf("%w: %v", ErrInvalid, adi.ErrNoTransport)
	}
	kind, err := t.Active()
	if err != nil {
		return err
	}
	if (kind == probe.KindJTAG && t.JTAG == nil) || (kind == probe.KindSWD && t.SWD == nil) {
		return fmt.Errorf("%w: transport %s has no section", ErrInvalid, kind)
	}
	if j := t.JTAG; j != nil {
		if j.Version != 0 && j.Version != 5 && j.Version != 6 {
			return fmt.Errorf("%w: jtag version %d", ErrInvalid, j.Version)
		}
		if _, ok := adi.ParseFillMode(strings.ToLower(j.Filler.Mode)); !ok {
			return fmt.Errorf("%w: filler mode %q", ErrInvalid, j.Filler.Mode)
		}
	}
	seen := make(map[string]bool)
	for i, ap := range t.APs {
		if ap.Name == "" {
			return fmt.Errorf("%w: aps[%d] has no name", ErrInvalid, i)
		}
		if seen[ap.Name] {
			return fmt.Errorf("%w: %q: %v", ErrInvalid, ap.Name, adi.ErrDuplicateAP)
		}
		seen[ap.Name] = true
		if _, err := adi.ParseAPKind(ap.Kind); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, r := range ap.Registers {
			if _, err := ParseAccess(r.Access); err != nil {
				return fmt.Errorf("%w: %s.%s: %v", ErrInvalid, ap.Name, r.Name, err)
			}
		}
	}
	return nil
}

// Active returns the debug port selected by Transport.
func (t *Target) Active() (probe.Kind, error) {
	if t.Transport == "" {
		if t.JTAG == nil {
			return probe.KindSWD, nil
		}
		return probe.KindJTAG, nil
	}
	kind, err := probe.ParseKind(t.Transport)
	if err != nil {
		return probe.KindNone, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return kind, nil
}

// ParseAccess accepts rw, ro or wo.
func ParseAccess(s string) (adi.Access, error) {
	switch strings.ToLower(s) {
	case "", "rw":
		return adi.ReadWrite, nil
	case "ro", "r":
		return adi.Readable, nil
	case "wo", "w":
		return adi.Writable, nil
	}
	return 0, fmt.Errorf("unknown access %q", s)
}

// ADIConfig builds the engine configuration. Links for ports the description
// does not declare are dropped.
func (t *Target) ADIConfig(jtag probe.JTAG, swd probe.SWD, log logrus.FieldLogger) (adi.Config, error) {
	if err := t.Validate(); err != nil {
		return adi.Config{}, err
	}
	kind, _ := t.Active()
	cfg := adi.Config{Active: kind, Logger: log}
	if j := t.JTAG; j != nil {
		mode, _ := adi.ParseFillMode(strings.ToLower(j.Filler.Mode))
		cfg.JTAG = jtag
		cfg.JTAGConfig = adi.JTAGConfig{
			Version:        j.Version,
			IRSize:         j.IRSize,
			AccessDelay:    j.AccessDelay,
			WriteAPDelay:   j.WriteAPDelay,
			ReadAck:        j.ReadAck.Value,
			ReadAckEnabled: j.ReadAck.Enabled,
			SelectReset:    j.SelectReset,
			Filler:         adi.Filler{Mode: mode, Value: j.Filler.Value, Seed: j.Filler.Seed},
		}
	}
	if s := t.SWD; s != nil {
		cfg.SWD = swd
		cfg.SWDConfig = adi.SWDConfig{ParkCycles: s.ParkCycles, SelectReset: s.SelectReset}
	}
	for _, ap := range t.APs {
		kind, _ := adi.ParseAPKind(ap.Kind)
		ac := adi.APConfig{
			Name:          ap.Name,
			Kind:          kind,
			BaseAddress:   ap.Base,
			RegAccessWait: ap.RegAccessWait,
			MemAccessWait: ap.MemAccessWait,
			Latency:       ap.Latency,
			CSWReset:      ap.CSWReset,
			AXI:           ap.AXI,
		}
		for _, r := range ap.Registers {
			acc, _ := ParseAccess(r.Access)
			ac.Registers = append(ac.Registers, adi.APRegister{Name: strings.ToUpper(r.Name), Offset: r.Offset, Access: acc})
		}
		cfg.APs = append(cfg.APs, ac)
	}
	return cfg, nil
}

// SimConfig builds the simulator configuration. The simulated DP version
// follows the JTAG section.
func (t *Target) SimConfig(log logrus.FieldLogger) sim.Config {
	cfg := sim.Config{
		JTAGIDCode: t.Sim.JTAGIDCode,
		SWDIDCode:  t.Sim.SWDIDCode,
		JTAGAck:    t.Sim.JTAGAck,
		SWDAck:     t.Sim.SWDAck,
		Logger:     log,
	}
	if t.JTAG != nil {
		cfg.Version = t.JTAG.Version
	}
	for _, ap := range t.Sim.APs {
		cfg.APs = append(cfg.APs, sim.APModel{
			Base: ap.Base, Mem: ap.Mem, IDR: ap.IDR, CSW: ap.CSW, CFG: ap.CFG, BASE: ap.BASE, Regs: ap.Regs,
		})
	}
	return cfg
}

// NewSim builds a simulated target and preloads its memory.
func (t *Target) NewSim(log logrus.FieldLogger) *sim.Target {
	s := sim.New(t.SimConfig(log))
	for addr, v := range t.Sim.Memory {
		s.Poke(addr, v)
	}
	return s
}
