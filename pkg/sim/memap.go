package sim

// MEM-AP register offsets as the model decodes them.
const (
	regCSW  = 0x00
	regTAR  = 0x04
	regDRW  = 0x0C
	regBD0  = 0x10
	regBD3  = 0x1C
	regCFG  = 0xF4
	regBASE = 0xF8
	regIDR  = 0xFC
)

var bdNames = [...]string{"BD0", "BD1", "BD2", "BD3"}

type memAP struct {
	t    *Target
	csw  uint32
	tar  uint32
	idr  uint32
	cfg  uint32
	base uint32
}

func newMemAP(t *Target, m APModel) *memAP {
	return &memAP{t: t, csw: m.CSW, idr: m.IDR, cfg: m.CFG, base: m.BASE}
}

func (m *memAP) size() uint32 {
	switch m.csw & 7 {
	case 0:
		return 1
	case 1:
		return 2
	}
	return 4
}

func (m *memAP) increment() {
	var step uint32
	switch m.csw >> 4 & 3 {
	case 1:
		step = m.size()
	case 2:
		step = 4
	default:
		return
	}
	// auto-increment stays within the 1KB block
	m.tar = m.tar&^0x3FF | (m.tar+step)&0x3FF
}

func (m *memAP) read(off uint32) uint32 {
	switch {
	case off == regCSW:
		m.t.count("read", "CSW")
		return m.csw
	case off == regTAR:
		m.t.count("read", "TAR")
		return m.tar
	case off == regDRW:
		m.t.count("read", "DRW")
		v := m.load(m.tar, m.size())
		m.increment()
		return v
	case off >= regBD0 && off <= regBD3:
		m.t.count("read", bdNames[(off-regBD0)/4])
		return m.t.Peek(m.tar&^0xF | (off - regBD0))
	case off == regCFG:
		return m.cfg
	case off == regBASE:
		return m.base
	case off == regIDR:
		m.t.count("read", "IDR")
		return m.idr
	}
	return 0
}

func (m *memAP) write(off, v uint32) {
	switch {
	case off == regCSW:
		m.t.count("write", "CSW")
		m.csw = v
	case off == regTAR:
		m.t.count("write", "TAR")
		m.tar = v
	case off == regDRW:
		m.t.count("write", "DRW")
		m.store(m.tar, m.size(), v)
		m.increment()
	case off >= regBD0 && off <= regBD3:
		m.t.count("write", bdNames[(off-regBD0)/4])
		m.t.Poke(m.tar&^0xF|(off-regBD0), v)
	}
}

// load returns the word containing addr with only the accessed lanes valid.
func (m *memAP) load(addr, size uint32) uint32 {
	word := m.t.Peek(addr &^ 3)
	switch size {
	case 1:
		shift := 8 * (addr & 3)
		return word & (0xFF << shift)
	case 2:
		shift := 8 * (addr & 2)
		return word & (0xFFFF << shift)
	}
	return word
}

// store writes the lanes of v selected by addr and size.
func (m *memAP) store(addr, size, v uint32) {
	switch size {
	case 1:
		m.t.mem[addr] = byte(v >> (8 * (addr & 3)))
	case 2:
		a := addr &^ 1
		shift := 8 * (addr & 2)
		m.t.mem[a] = byte(v >> shift)
		m.t.mem[a+1] = byte(v >> (shift + 8))
	default:
		m.t.Poke(addr&^3, v)
	}
}

// regAP is a plain register file.
type regAP struct {
	regs map[uint32]uint32
}

func newRegAP(m APModel) *regAP {
	r := &regAP{regs: make(map[uint32]uint32)}
	for k, v := range m.Regs {
		r.regs[k] = v
	}
	if m.IDR != 0 {
		r.regs[regIDR] = m.IDR
	}
	return r
}

func (r *regAP) read(off uint32) uint32 { return r.regs[off] }

func (r *regAP) write(off, v uint32) {
	if off == regIDR {
		return
	}
	r.regs[off] = v
}
