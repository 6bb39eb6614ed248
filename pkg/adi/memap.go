package adi

import (
	"errors"
	"fmt"
)

// MEM-AP register offsets.
const (
	RegCSW  = 0x00
	RegTAR  = 0x04
	RegDRW  = 0x0C
	RegBD0  = 0x10
	RegBD1  = 0x14
	RegBD2  = 0x18
	RegBD3  = 0x1C
	RegCFG  = 0xF4
	RegBASE = 0xF8
	RegIDR  = 0xFC
)

var memAPRegisters = []APRegister{
	{Name: "CSW", Offset: RegCSW, Access: ReadWrite},
	{Name: "TAR", Offset: RegTAR, Access: ReadWrite},
	{Name: "DRW", Offset: RegDRW, Access: ReadWrite},
	{Name: "BD0", Offset: RegBD0, Access: ReadWrite},
	{Name: "BD1", Offset: RegBD1, Access: ReadWrite},
	{Name: "BD2", Offset: RegBD2, Access: ReadWrite},
	{Name: "BD3", Offset: RegBD3, Access: ReadWrite},
	{Name: "CFG", Offset: RegCFG, Access: Readable},
	{Name: "BASE", Offset: RegBASE, Access: Readable},
	{Name: "IDR", Offset: RegIDR, Access: Readable},
}

// CSW fields shared by the AHB and AXI layouts.
const (
	CSWSizeMask    = 0x7
	CSWAddrIncMask = 0x3 << 4
	CSWSize8       = 0
	CSWSize16      = 1
	CSWSize32      = 2
)

// AddrInc is the CSW.AddrInc auto-increment mode.
type AddrInc uint8

const (
	AddrIncOff AddrInc = iota
	AddrIncSingle
	AddrIncPacked
)

// SizeCode maps an access width in bits to CSW.Size. Widths other than 8 and
// 16 fall back to 32.
func SizeCode(width int) uint32 {
	switch width {
	case 8:
		return CSWSize8
	case 16:
		return CSWSize16
	}
	return CSWSize32
}

func normWidth(width int) int {
	if width == 8 || width == 16 {
		return width
	}
	return 32
}

func laneShift(width int, addr uint32) uint {
	switch width {
	case 8:
		return uint(addr&0x3) * 8
	case 16:
		return uint(addr&0x2) * 8
	}
	return 0
}

func widthMask(width int) uint32 {
	switch width {
	case 8:
		return 0xFF
	case 16:
		return 0xFFFF
	}
	return 0xFFFFFFFF
}

// GetWData places a sub-word value on the DRW byte lanes selected by addr.
func GetWData(width int, addr, v uint32) uint32 {
	width = normWidth(width)
	return (v & widthMask(width)) << laneShift(width, addr)
}

// GetRData extracts a sub-word value from the DRW byte lanes selected by addr.
func GetRData(width int, addr, v uint32) uint32 {
	width = normWidth(width)
	return v >> laneShift(width, addr) & widthMask(width)
}

// CSWFields is a decoded CSW. Fields that do not exist in the decoded layout
// are left zero.
type CSWFields struct {
	Size     uint32
	AddrInc  AddrInc
	Mode     uint32
	TrInProg bool

	// AHB layout
	DbgSwEnable bool
	HProt       uint32
	DeviceEn    bool

	// AXI layout
	Prot      uint32
	Cache     uint32
	Domain    uint32
	ACEEnable bool
	DbgStatus bool

	SPIDEN bool
}

// DecodeCSW splits v using the AHB or AXI field layout.
func DecodeCSW(v uint32, axi bool) CSWFields {
	c := CSWFields{
		Size:     v & CSWSizeMask,
		AddrInc:  AddrInc(v >> 4 & 0x3),
		Mode:     v >> 8 & 0xF,
		TrInProg: v>>7&1 == 1,
		SPIDEN:   v>>23&1 == 1,
	}
	if axi {
		c.Prot = v >> 28 & 0x7
		c.Cache = v >> 24 & 0xF
		c.Domain = v >> 13 & 0x3
		c.ACEEnable = v>>12&1 == 1
		c.DbgStatus = v>>6&1 == 1
	} else {
		c.DbgSwEnable = v>>31&1 == 1
		c.HProt = v >> 24 & 0x7F
		c.DeviceEn = v>>6&1 == 1
	}
	return c
}

// MemAP is a memory access port. It caches CSW and TAR so that repeated
// accesses only program the registers that change.
type MemAP struct {
	*AP

	axi      bool
	cswReset uint32
	memWait  int
	latency  int

	csw      uint32
	cswValid bool
	tar      uint32
	tarValid bool
}

// NewMemAP returns a MEM-AP.
func NewMemAP(src PortSource, cfg APConfig) *MemAP {
	cfg.Kind = APMem
	m := &MemAP{
		AP:       newAP(src, cfg, "mem-ap"),
		axi:      cfg.AXI,
		cswReset: cfg.CSWReset,
		memWait:  cfg.MemAccessWait,
		latency:  cfg.Latency,
	}
	for _, r := range memAPRegisters {
		m.AddRegister(r)
	}
	m.Reset()
	return m
}

// Reset returns the caches to their reset view.
func (m *MemAP) Reset() {
	m.csw, m.cswValid = m.cswReset, m.cswReset != 0
	m.tar = 0xFFFFFFFF
	m.tarValid = false
}

// AXI reports the CSW layout in use.
func (m *MemAP) AXI() bool { return m.axi }

// CSW returns the cached CSW value and whether it can be trusted.
func (m *MemAP) CSW() (uint32, bool) { return m.csw, m.cswValid }

// DecodedCSW decodes the cached CSW.
func (m *MemAP) DecodedCSW() CSWFields { return DecodeCSW(m.csw, m.axi) }

// TAR returns the cached TAR value and whether it can be trusted.
func (m *MemAP) TAR() (uint32, bool) { return m.tar, m.tarValid }

// ReadRegister reads a MEM-AP register; CSW and TAR reads refresh the caches.
func (m *MemAP) ReadRegister(name string, opts ...Option) (uint32, error) {
	v, err := m.AP.ReadRegister(name, opts...)
	if err != nil {
		return v, err
	}
	r, _ := m.Register(name)
	switch r.Offset {
	case RegCSW:
		m.csw, m.cswValid = v, true
	case RegTAR:
		m.tar, m.tarValid = v, true
	case RegDRW:
		m.incrementAddr()
	}
	return v, nil
}

// WriteRegister writes a MEM-AP register. CSW and TAR writes update the
// caches and DRW writes advance the TAR cache. BDn accesses never
// auto-increment.
func (m *MemAP) WriteRegister(name string, v uint32, opts ...Option) error {
	if err := m.AP.WriteRegister(name, v, opts...); err != nil {
		return err
	}
	r, _ := m.Register(name)
	switch r.Offset {
	case RegCSW:
		m.csw, m.cswValid = v, true
	case RegTAR:
		m.tar, m.tarValid = v, true
	case RegDRW:
		m.incrementAddr()
	}
	return nil
}

func (m *MemAP) writeCSW(v uint32) error {
	if err := m.WriteOffset(RegCSW, v); err != nil {
		return err
	}
	m.csw, m.cswValid = v, true
	return nil
}

// seedCSW reads CSW when the cache is unknown. It reports whether the next
// CSW update must be written regardless of the cached value: a zero read is
// what an offline link returns, so it cannot be trusted.
func (m *MemAP) seedCSW() (bool, error) {
	if m.cswValid {
		return false, nil
	}
	v, err := m.ReadOffset(RegCSW)
	if err != nil {
		return false, err
	}
	m.csw, m.cswValid = v, true
	return v == 0, nil
}

// SetSize programs CSW.Size for width bits. The first call with an unknown
// CSW reads it back to seed the cache.
func (m *MemAP) SetSize(width int) error {
	code := SizeCode(width)
	force, err := m.seedCSW()
	if err != nil {
		return err
	}
	if !force && m.csw&CSWSizeMask == code {
		return nil
	}
	return m.writeCSW(m.csw&^CSWSizeMask | code)
}

// SetAddrInc programs CSW.AddrInc.
func (m *MemAP) SetAddrInc(mode AddrInc) error {
	force, err := m.seedCSW()
	if err != nil {
		return err
	}
	want := m.csw&^CSWAddrIncMask | uint32(mode)<<4
	if !force && want == m.csw {
		return nil
	}
	return m.writeCSW(want)
}

// SetAddr programs TAR unless the cache already holds addr. force skips the
// cache check.
func (m *MemAP) SetAddr(addr uint32, force bool) error {
	if !force && m.tarValid && m.tar == addr {
		return nil
	}
	if err := m.WriteOffset(RegTAR, addr); err != nil {
		return err
	}
	m.tar, m.tarValid = addr, true
	return nil
}

// incrementAddr follows the target's auto-increment so the TAR cache stays
// true. Auto-increment never carries across a 1KB boundary, so landing on one
// invalidates the cache.
func (m *MemAP) incrementAddr() {
	if !m.tarValid {
		return
	}
	switch AddrInc(m.csw >> 4 & 0x3) {
	case AddrIncSingle:
		m.tar += 1 << (m.csw & CSWSizeMask)
	case AddrIncPacked:
		m.tar += 4
	default:
		return
	}
	if m.tar&0x3FF == 0 {
		m.tar, m.tarValid = 0xFFFFFFFF, false
	}
}

func (m *MemAP) settle() error {
	return m.port().Cycle(m.latency)
}

// Write stores a width-bit value at addr.
func (m *MemAP) Write(addr, v uint32, width int, opts ...Option) error {
	width = normWidth(width)
	if err := m.SetSize(width); err != nil {
		return err
	}
	if err := m.SetAddr(addr, false); err != nil {
		return err
	}
	m.log.Debugf("Write MEM-AP (%s) address 0x%08X: 0x%X", m.name, addr, v)
	dp := m.port()
	if err := dp.WriteAP(m.base+RegDRW, GetWData(width, addr, v), opts...); err != nil {
		return err
	}
	if err := dp.Cycle(m.regWait + m.memWait); err != nil {
		return err
	}
	m.incrementAddr()
	return m.settle()
}

// Read loads a width-bit value from addr. An expectation given through
// WithExpect/WithMask applies to the unshifted value.
func (m *MemAP) Read(addr uint32, width int, opts ...Option) (uint32, error) {
	width = normWidth(width)
	if err := m.SetSize(width); err != nil {
		return 0, err
	}
	if err := m.SetAddr(addr, false); err != nil {
		return 0, err
	}
	t := newTransaction(opts)
	shift := laneShift(width, addr)
	lane := []Option{
		WithAttempts(t.Attempts),
		WithWaitStates(m.regWait + m.memWait + t.WaitStates),
		WithMask(t.Mask & widthMask(width) << shift),
		WithReadAck(t.ReadAck),
		WithParkCycles(t.ParkCycles),
	}
	if t.HasExpect {
		lane = append(lane, WithExpect(GetWData(width, addr, t.Expect)))
	}
	if t.Store {
		lane = append(lane, WithStore())
	}
	raw, err := m.port().ReadAP(m.base+RegDRW, lane...)
	var mm *MismatchError
	if err != nil && !errors.As(err, &mm) {
		return 0, err
	}
	v := GetRData(width, addr, raw)
	m.log.Debugf("Read MEM-AP (%s) address 0x%08X: 0x%X", m.name, addr, v)
	m.incrementAddr()
	if err := m.settle(); err != nil {
		return 0, err
	}
	if mm != nil {
		return v, &MismatchError{
			Port:     m.name,
			Register: fmt.Sprintf("0x%08X", addr),
			Got:      v,
			Want:     t.Expect & t.Mask & widthMask(width),
			Mask:     t.Mask & widthMask(width),
		}
	}
	return v, nil
}

// WriteRead writes v and reads it back expecting v under the mask.
func (m *MemAP) WriteRead(addr, v uint32, width int, opts ...Option) (uint32, error) {
	if err := m.Write(addr, v, width, opts...); err != nil {
		return 0, err
	}
	return m.Read(addr, width, append([]Option{WithExpect(v)}, opts...)...)
}

// WriteBlock writes consecutive words from addr using single auto-increment.
func (m *MemAP) WriteBlock(addr uint32, words []uint32) error {
	if err := m.SetSize(32); err != nil {
		return err
	}
	if err := m.SetAddrInc(AddrIncSingle); err != nil {
		return err
	}
	for i, w := range words {
		if err := m.Write(addr+uint32(i)*4, w, 32); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlock reads n consecutive words from addr using single auto-increment.
func (m *MemAP) ReadBlock(addr uint32, n int) ([]uint32, error) {
	if err := m.SetSize(32); err != nil {
		return nil, err
	}
	if err := m.SetAddrInc(AddrIncSingle); err != nil {
		return nil, err
	}
	out := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		v, err := m.Read(addr+uint32(i)*4, 32)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
