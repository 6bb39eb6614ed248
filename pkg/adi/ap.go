package adi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// PortSource yields the DebugPort an AP should use. A DAP hands out its
// currently selected DP; a DebugPort returns itself.
type PortSource interface {
	Port() *DebugPort
}

// APKind is the class of an access port.
type APKind uint8

const (
	APGeneric APKind = iota
	APMem
	APMDM
)

func (k APKind) String() string {
	switch k {
	case APMem:
		return "mem"
	case APMDM:
		return "mdm"
	}
	return "generic"
}

// ParseAPKind accepts mem, mdm or generic.
func ParseAPKind(s string) (APKind, error) {
	switch strings.ToLower(s) {
	case "", "mem", "mem_ap", "memap":
		return APMem, nil
	case "mdm", "mdm_ap":
		return APMDM, nil
	case "generic", "ap":
		return APGeneric, nil
	}
	return 0, fmt.Errorf("adi: unknown access port class %q", s)
}

// APRegister describes one register of an access port.
type APRegister struct {
	Name   string
	Offset uint32
	Access Access
}

// APConfig describes an access port to construct.
type APConfig struct {
	Name        string
	Kind        APKind
	BaseAddress uint64
	// RegAccessWait idles the link after register writes and between a posted
	// read and its RDBUFF collection.
	RegAccessWait int
	// MemAccessWait adds memory-side latency to DRW accesses.
	MemAccessWait int
	// Latency idles the link after every memory transaction.
	Latency int
	// CSWReset seeds the CSW cache; zero forces a CSW read on first use.
	CSWReset uint32
	// AXI selects the AXI CSW field layout.
	AXI       bool
	Registers []APRegister
	Logger    logrus.FieldLogger
}

// AccessPort is any AP reachable through a DebugPort.
type AccessPort interface {
	Name() string
	Kind() APKind
	BaseAddress() uint64
	Registers() []APRegister
	ReadRegister(name string, opts ...Option) (uint32, error)
	WriteRegister(name string, v uint32, opts ...Option) error
	Reset()
}

// AP is a generic access port with a named register map.
type AP struct {
	name string
	kind APKind
	base uint64
	src  PortSource
	log  logrus.FieldLogger

	regWait int
	regs    map[string]APRegister
}

// MDM-AP preset registers.
var mdmRegisters = []APRegister{
	{Name: "STATUS", Offset: 0x00, Access: ReadWrite},
	{Name: "CONTROL", Offset: 0x04, Access: ReadWrite},
}

// NewAP returns a generic or MDM access port.
func NewAP(src PortSource, cfg APConfig) *AP {
	ap := newAP(src, cfg, "ap")
	if cfg.Kind == APMDM {
		for _, r := range mdmRegisters {
			ap.AddRegister(r)
		}
	}
	return ap
}

func newAP(src PortSource, cfg APConfig, prefix string) *AP {
	ap := &AP{
		name:    cfg.Name,
		kind:    cfg.Kind,
		base:    cfg.BaseAddress,
		src:     src,
		regWait: cfg.RegAccessWait,
		regs:    make(map[string]APRegister),
	}
	ap.log = component(cfg.Logger, prefix).WithField("ap", cfg.Name)
	for _, r := range cfg.Registers {
		ap.AddRegister(r)
	}
	return ap
}

func (ap *AP) Name() string        { return ap.name }
func (ap *AP) Kind() APKind        { return ap.kind }
func (ap *AP) BaseAddress() uint64 { return ap.base }

// RegAccessWait is the configured register access wait.
func (ap *AP) RegAccessWait() int { return ap.regWait }

// AddRegister adds or replaces a named register. A zero Access means
// read-write.
func (ap *AP) AddRegister(r APRegister) {
	if r.Access == 0 {
		r.Access = ReadWrite
	}
	r.Name = strings.ToUpper(r.Name)
	ap.regs[r.Name] = r
}

// Register looks a register up by name.
func (ap *AP) Register(name string) (APRegister, bool) {
	r, ok := ap.regs[strings.ToUpper(name)]
	return r, ok
}

// Registers lists the register map ordered by offset.
func (ap *AP) Registers() []APRegister {
	out := make([]APRegister, 0, len(ap.regs))
	for _, r := range ap.regs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Reset is a no-op for APs without caches.
func (ap *AP) Reset() {}

func (ap *AP) port() *DebugPort { return ap.src.Port() }

func (ap *AP) resolve(op, name string, need Access) (APRegister, error) {
	r, ok := ap.Register(name)
	if !ok {
		// a register another port owns: the caller's topology is wrong
		return r, &AccessError{Port: ap.name, Register: name, Op: op, Err: ErrNotOwner}
	}
	if r.Access&need == 0 {
		kind := ErrReadOnly
		if need == Readable {
			kind = ErrWriteOnly
		}
		e := &AccessError{Port: ap.name, Register: r.Name, Op: op, Err: kind}
		ap.log.Warn(e.Error())
		return r, e
	}
	return r, nil
}

// ReadRegister reads a register owned by this AP.
func (ap *AP) ReadRegister(name string, opts ...Option) (uint32, error) {
	r, err := ap.resolve("read", name, Readable)
	if err != nil {
		return 0, err
	}
	v, err := ap.ReadOffset(r.Offset, opts...)
	if err == nil {
		ap.log.Debugf("Read AP (%s) register %s: 0x%08X", ap.name, r.Name, v)
	}
	return v, err
}

// WriteRegister writes a register owned by this AP.
func (ap *AP) WriteRegister(name string, v uint32, opts ...Option) error {
	r, err := ap.resolve("write", name, Writable)
	if err != nil {
		return err
	}
	ap.log.Debugf("Write AP (%s) register %s: 0x%08X", ap.name, r.Name, v)
	return ap.WriteOffset(r.Offset, v, opts...)
}

// ReadOffset reads the AP register at offset without a name lookup.
func (ap *AP) ReadOffset(offset uint32, opts ...Option) (uint32, error) {
	if ap.regWait > 0 {
		opts = append([]Option{WithWaitStates(ap.regWait)}, opts...)
	}
	return ap.port().ReadAP(ap.base+uint64(offset), opts...)
}

// WriteOffset writes the AP register at offset and waits RegAccessWait.
func (ap *AP) WriteOffset(offset uint32, v uint32, opts ...Option) error {
	dp := ap.port()
	if err := dp.WriteAP(ap.base+uint64(offset), v, opts...); err != nil {
		return err
	}
	return dp.Cycle(ap.regWait)
}
