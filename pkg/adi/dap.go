package adi

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/sirupsen/logrus"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// DefaultAPName is the AP a DAP routes to when none is named.
const DefaultAPName = "mem_ap"

// Config describes a complete DAP: one or both DPs and a set of APs.
type Config struct {
	JTAG probe.JTAG
	SWD  probe.SWD

	JTAGConfig JTAGConfig
	SWDConfig  SWDConfig

	// Active picks the DP used first when both links are present. The
	// default is JTAG.
	Active probe.Kind

	// APs to create. An empty list creates a MEM-AP named mem_ap at 0.
	APs []APConfig

	Logger logrus.FieldLogger
}

// DAP aggregates the debug ports and access ports of one target.
type DAP struct {
	log    logrus.FieldLogger
	jtag   *DebugPort
	swd    *DebugPort
	active *DebugPort

	aps   map[string]AccessPort
	order []string
	apsel bitmap.Bitmap
}

// New builds a DAP. It fails with ErrNoTransport when neither link is given.
func New(cfg Config) (*DAP, error) {
	if cfg.JTAG == nil && cfg.SWD == nil {
		return nil, ErrNoTransport
	}
	d := &DAP{
		log:   component(cfg.Logger, "adi"),
		aps:   make(map[string]AccessPort),
		apsel: bitmap.New(256),
	}
	if cfg.JTAG != nil {
		if cfg.JTAGConfig.Logger == nil {
			cfg.JTAGConfig.Logger = cfg.Logger
		}
		d.jtag = NewJTAGDP(cfg.JTAG, cfg.JTAGConfig)
	}
	if cfg.SWD != nil {
		if cfg.SWDConfig.Logger == nil {
			cfg.SWDConfig.Logger = cfg.Logger
		}
		d.swd = NewSWDP(cfg.SWD, cfg.SWDConfig)
	}
	d.active = d.jtag
	if d.active == nil || (cfg.Active == probe.KindSWD && d.swd != nil) {
		d.active = d.swd
	}

	aps := cfg.APs
	if len(aps) == 0 {
		aps = []APConfig{{Name: DefaultAPName, Kind: APMem}}
	}
	for _, ac := range aps {
		if ac.Logger == nil {
			ac.Logger = cfg.Logger
		}
		if _, err := d.AddAP(ac); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Port returns the active DebugPort.
func (d *DAP) Port() *DebugPort { return d.active }

// JTAGDP returns the JTAG-DP or nil.
func (d *DAP) JTAGDP() *DebugPort { return d.jtag }

// SWDP returns the SW-DP or nil.
func (d *DAP) SWDP() *DebugPort { return d.swd }

// SetDP selects which DP carries subsequent accesses.
func (d *DAP) SetDP(kind probe.Kind) error {
	var dp *DebugPort
	switch kind {
	case probe.KindJTAG:
		dp = d.jtag
	case probe.KindSWD:
		dp = d.swd
	}
	if dp == nil {
		return fmt.Errorf("adi: no %s debug port on this DAP: %w", kind, ErrNoTransport)
	}
	if dp != d.active {
		d.log.Debugf("Switching to %s", dp)
	}
	d.active = dp
	return nil
}

// ResetDP resets the active DP caches.
func (d *DAP) ResetDP() { d.active.Reset() }

// Reset resets both DPs and every AP cache.
func (d *DAP) Reset() {
	for _, dp := range []*DebugPort{d.jtag, d.swd} {
		if dp != nil {
			dp.Reset()
		}
	}
	for _, name := range d.order {
		d.aps[name].Reset()
	}
}

// AddAP creates an AP bound to this DAP. Names must be unique; two APs on the
// same APSEL are allowed but logged.
func (d *DAP) AddAP(cfg APConfig) (AccessPort, error) {
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("ap%d", len(d.order))
	}
	if _, dup := d.aps[cfg.Name]; dup {
		return nil, fmt.Errorf("adi: %s: %w", cfg.Name, ErrDuplicateAP)
	}
	if d.active.Version() < 6 {
		sel := int(cfg.BaseAddress >> 24 & 0xFF)
		if d.apsel.Get(sel) {
			d.log.Warnf("APSEL %d already used by another access port, adding %s anyway", sel, cfg.Name)
		}
		d.apsel.Set(sel, true)
	}

	var ap AccessPort
	if cfg.Kind == APMem {
		ap = NewMemAP(d, cfg)
	} else {
		ap = NewAP(d, cfg)
	}
	d.aps[cfg.Name] = ap
	d.order = append(d.order, cfg.Name)
	d.log.Debugf("Added %s access port %s at 0x%08X", cfg.Kind, cfg.Name, cfg.BaseAddress)
	return ap, nil
}

// AP looks an access port up by name.
func (d *DAP) AP(name string) (AccessPort, bool) {
	ap, ok := d.aps[name]
	return ap, ok
}

// MemAP looks a MEM-AP up by name.
func (d *DAP) MemAP(name string) (*MemAP, bool) {
	m, ok := d.aps[name].(*MemAP)
	return m, ok
}

// APs lists the access ports in creation order.
func (d *DAP) APs() []AccessPort {
	out := make([]AccessPort, 0, len(d.order))
	for _, n := range d.order {
		out = append(out, d.aps[n])
	}
	return out
}

// APSELUsed reports whether an ADIv5 AP has been added at apsel.
func (d *DAP) APSELUsed(apsel uint8) bool { return d.apsel.Get(int(apsel)) }

// DefaultAP returns mem_ap when present, otherwise the first AP added.
func (d *DAP) DefaultAP() AccessPort {
	if ap, ok := d.aps[DefaultAPName]; ok {
		return ap
	}
	if len(d.order) == 0 {
		return nil
	}
	return d.aps[d.order[0]]
}

func (d *DAP) target(t *Transaction) (AccessPort, error) {
	if t.AP == "" {
		if ap := d.DefaultAP(); ap != nil {
			return ap, nil
		}
		return nil, ErrUnknownAP
	}
	ap, ok := d.aps[t.AP]
	if !ok {
		return nil, fmt.Errorf("adi: %q: %w", t.AP, ErrUnknownAP)
	}
	return ap, nil
}

// ReadRegister reads reg from the AP chosen by WithAP (default AP
// otherwise). With an empty reg the access is a 32-bit memory read at the
// WithAddress address on a MEM-AP.
func (d *DAP) ReadRegister(reg string, opts ...Option) (uint32, error) {
	t := newTransaction(opts)
	ap, err := d.target(t)
	if err != nil {
		return 0, err
	}
	if reg != "" {
		return ap.ReadRegister(reg, opts...)
	}
	m, err := d.memory(ap, t, "read")
	if err != nil {
		return 0, err
	}
	return m.Read(uint32(t.Address), 32, opts...)
}

// WriteRegister writes v to reg, or to memory at WithAddress when reg is
// empty.
func (d *DAP) WriteRegister(reg string, v uint32, opts ...Option) error {
	t := newTransaction(opts)
	ap, err := d.target(t)
	if err != nil {
		return err
	}
	if reg != "" {
		return ap.WriteRegister(reg, v, opts...)
	}
	m, err := d.memory(ap, t, "write")
	if err != nil {
		return err
	}
	return m.Write(uint32(t.Address), v, 32, opts...)
}

func (d *DAP) memory(ap AccessPort, t *Transaction, op string) (*MemAP, error) {
	if !t.HasAddress {
		return nil, &AccessError{Port: ap.Name(), Register: "<value>", Op: op, Err: ErrNoAddress}
	}
	m, ok := ap.(*MemAP)
	if !ok {
		return nil, &AccessError{Port: ap.Name(), Register: fmt.Sprintf("0x%08X", t.Address), Op: op, Err: ErrNotOwner}
	}
	return m, nil
}
