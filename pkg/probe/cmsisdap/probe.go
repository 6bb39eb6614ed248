package cmsisdap

import (
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// DefaultSpeed is the SWCLK/TCK frequency set on connect.
const DefaultSpeed = 1_000_000

// Probe is a connected CMSIS-DAP probe. In JTAG mode it is a probe.Adapter
// (wrap it with probe.NewShiftJTAG); in SWD mode it is a probe.SWD.
type Probe struct {
	link     Link
	protocol *Protocol

	kind      probe.Kind
	info      probe.AdapterInfo
	speedHz   int
	connected bool

	mu sync.Mutex
}

var (
	_ probe.Adapter = (*Probe)(nil)
	_ probe.SWD     = (*Probe)(nil)
)

// Open connects to the USB probe vid:pid in the given mode.
func Open(vid, pid uint16, kind probe.Kind) (*Probe, error) {
	t, err := OpenUSB(vid, pid)
	if err != nil {
		return nil, err
	}
	p, err := New(t, kind)
	if err != nil {
		t.Close()
		return nil, err
	}
	return p, nil
}

// New connects a probe over link.
func New(link Link, kind probe.Kind) (*Probe, error) {
	p := &Probe{
		link:     link,
		protocol: NewProtocol(link.PacketSize()),
		kind:     kind,
		speedHz:  DefaultSpeed,
	}
	if err := p.queryInfo(); err != nil {
		return nil, fmt.Errorf("cmsisdap: query info: %w", err)
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	if err := p.SetSpeed(p.speedHz); err != nil {
		return nil, err
	}
	if kind == probe.KindSWD {
		if err := p.configureSWD(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Probe) infoString(id byte) string {
	resp, err := p.link.WriteRead(p.protocol.EncodeInfo(id))
	if err != nil {
		return ""
	}
	s, _ := p.protocol.DecodeInfoString(resp)
	return s
}

func (p *Probe) queryInfo() error {
	resp, err := p.link.WriteRead(p.protocol.EncodeInfo(InfoCapabilities))
	if err != nil {
		return err
	}
	caps, err := p.protocol.DecodeInfo(resp)
	if err != nil {
		return err
	}
	var c byte
	if len(caps) > 0 {
		c = caps[0]
	}
	p.info = probe.AdapterInfo{
		Name:         "CMSIS-DAP Probe",
		Vendor:       p.infoString(InfoVendorID),
		Model:        p.infoString(InfoProductID),
		SerialNumber: p.infoString(InfoSerialNum),
		Firmware:     p.infoString(InfoFirmwareVer),
		MinFrequency: 1_000,
		MaxFrequency: 10_000_000,
		SupportsSWD:  c&CapSWD != 0,
		SupportsJTAG: c&CapJTAG != 0,
	}
	return nil
}

func (p *Probe) connect() error {
	var port byte
	switch p.kind {
	case probe.KindJTAG:
		if !p.info.SupportsJTAG {
			return fmt.Errorf("cmsisdap: probe does not support JTAG")
		}
		port = PortJTAG
	case probe.KindSWD:
		if !p.info.SupportsSWD {
			return fmt.Errorf("cmsisdap: probe does not support SWD")
		}
		port = PortSWD
	default:
		return fmt.Errorf("cmsisdap: no link kind selected")
	}
	resp, err := p.link.WriteRead(p.protocol.EncodeConnect(port))
	if err != nil {
		return err
	}
	got, err := p.protocol.DecodeConnect(resp)
	if err != nil {
		return err
	}
	if got != port {
		return fmt.Errorf("cmsisdap: connected port %d, want %d", got, port)
	}
	p.connected = true
	return nil
}

// configureSWD sets a one-clock turnaround and switches an SWJ-DP from JTAG
// to SWD: line reset, the 0xE79E select sequence, line reset, idle.
func (p *Probe) configureSWD() error {
	resp, err := p.link.WriteRead(p.protocol.EncodeSWDConfigure(1, false))
	if err != nil {
		return err
	}
	if err := p.protocol.DecodeSWDConfigure(resp); err != nil {
		return err
	}
	ones := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	seq := [][]byte{ones, {0x9E, 0xE7}, ones, {0x00}}
	bits := []int{51, 16, 51, 8}
	for i, d := range seq {
		resp, err := p.link.WriteRead(p.protocol.EncodeSWJSequence(bits[i], d))
		if err != nil {
			return err
		}
		if err := p.protocol.DecodeSWJSequence(resp); err != nil {
			return err
		}
	}
	return nil
}

// Kind reports the connected protocol.
func (p *Probe) Kind() probe.Kind { return p.kind }

// Info returns the probe identification.
func (p *Probe) Info() (probe.AdapterInfo, error) { return p.info, nil }

// ShiftIR shifts one IR scan.
func (p *Probe) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	return p.shift(tms, tdi, bits)
}

// ShiftDR shifts one DR scan or idle stretch.
func (p *Probe) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	return p.shift(tms, tdi, bits)
}

func (p *Probe) shift(tms, tdi []byte, bits int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := probe.ValidateShiftBuffers(tms, tdi, bits); err != nil {
		return nil, err
	}
	seqs := buildSequences(tms, tdi, bits)
	tdo := make([]byte, (bits+7)/8)
	pos := 0
	for _, batch := range p.batches(seqs) {
		resp, err := p.link.WriteRead(p.protocol.EncodeJTAGSequence(batch))
		if err != nil {
			return nil, fmt.Errorf("cmsisdap: shift: %w", err)
		}
		caps, err := p.protocol.DecodeJTAGSequence(resp, batch)
		if err != nil {
			return nil, err
		}
		for i, s := range batch {
			for b := 0; b < s.TCKCount(); b++ {
				if probe.BitAt(caps[i], b) {
					tdo[pos/8] |= 1 << uint(pos%8)
				}
				pos++
			}
		}
	}
	return tdo, nil
}

// batches groups sequences so that each command and its TDO reply fit one
// packet.
func (p *Probe) batches(seqs []JTAGSequence) [][]JTAGSequence {
	var out [][]JTAGSequence
	var cur []JTAGSequence
	cmdLen, respLen := 2, 2
	for _, s := range seqs {
		n := (s.TCKCount() + 7) / 8
		if len(cur) > 0 && (cmdLen+1+n > p.protocol.PacketSize || respLen+n > p.protocol.PacketSize || len(cur) == 255) {
			out = append(out, cur)
			cur, cmdLen, respLen = nil, 2, 2
		}
		cur = append(cur, s)
		cmdLen += 1 + n
		respLen += n
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// buildSequences splits per-clock TMS into runs of constant TMS of at most
// 64 clocks, every one capturing TDO. A nil tdi shifts zeros.
func buildSequences(tms, tdi []byte, bits int) []JTAGSequence {
	var seqs []JTAGSequence
	for pos := 0; pos < bits; {
		level := probe.BitAt(tms, pos)
		n := 1
		for pos+n < bits && n < 64 && probe.BitAt(tms, pos+n) == level {
			n++
		}
		data := make([]byte, (n+7)/8)
		for i := 0; i < n; i++ {
			if probe.BitAt(tdi, pos+i) {
				data[i/8] |= 1 << uint(i%8)
			}
		}
		seqs = append(seqs, NewJTAGSequence(n, level, true, data))
		pos += n
	}
	return seqs
}

// ResetTAP resets the target (hard) or clocks five TMS=1 cycles.
func (p *Probe) ResetTAP(hard bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hard {
		resp, err := p.link.WriteRead(p.protocol.EncodeResetTarget())
		if err != nil {
			return fmt.Errorf("cmsisdap: hard reset: %w", err)
		}
		return p.protocol.DecodeResetTarget(resp)
	}
	seq := []JTAGSequence{NewJTAGSequence(5, true, false, []byte{0x00})}
	resp, err := p.link.WriteRead(p.protocol.EncodeJTAGSequence(seq))
	if err != nil {
		return fmt.Errorf("cmsisdap: TAP reset: %w", err)
	}
	_, err = p.protocol.DecodeJTAGSequence(resp, seq)
	return err
}

// SetSpeed sets the clock frequency.
func (p *Probe) SetSpeed(hz int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hz < p.info.MinFrequency || hz > p.info.MaxFrequency {
		return fmt.Errorf("cmsisdap: frequency %d Hz out of range [%d, %d]",
			hz, p.info.MinFrequency, p.info.MaxFrequency)
	}
	resp, err := p.link.WriteRead(p.protocol.EncodeSetClock(uint32(hz)))
	if err != nil {
		return fmt.Errorf("cmsisdap: set speed: %w", err)
	}
	if err := p.protocol.DecodeSetClock(resp); err != nil {
		return err
	}
	p.speedHz = hz
	return nil
}

// ConfigureJTAGChain tells the probe the IR lengths of the scan chain.
func (p *Probe) ConfigureJTAGChain(irLengths []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp, err := p.link.WriteRead(p.protocol.EncodeJTAGConfigure(irLengths))
	if err != nil {
		return fmt.Errorf("cmsisdap: configure chain: %w", err)
	}
	return p.protocol.DecodeJTAGConfigure(resp)
}

// ReadIDCODE reads the IDCODE of one device using the probe's own sequence.
func (p *Probe) ReadIDCODE(index byte) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp, err := p.link.WriteRead(p.protocol.EncodeJTAGIDCODE(index))
	if err != nil {
		return 0, fmt.Errorf("cmsisdap: read IDCODE: %w", err)
	}
	return p.protocol.DecodeJTAGIDCODE(resp)
}

// SendData drives bits host to target, LSB first.
func (p *Probe) SendData(value uint64, bits int) error {
	var seqs []SWDSequence
	for off := 0; off < bits; off += 64 {
		n := bits - off
		if n > 64 {
			n = 64
		}
		v := value >> uint(off)
		data := make([]byte, (n+7)/8)
		for i := range data {
			data[i] = byte(v >> (8 * uint(i)))
		}
		seqs = append(seqs, NewSWDSequence(n, false, data))
	}
	_, err := p.swd(seqs)
	return err
}

// GetData samples bits driven by the target, LSB first. The scan is judged
// by the caller.
func (p *Probe) GetData(bits int, scan probe.Scan) (uint64, error) {
	if bits <= 0 || bits > 64 {
		return 0, fmt.Errorf("cmsisdap: cannot sample %d bits", bits)
	}
	caps, err := p.swd([]SWDSequence{NewSWDSequence(bits, true, nil)})
	if err != nil {
		return 0, err
	}
	var v uint64
	for i, b := range caps[0] {
		v |= uint64(b) << (8 * uint(i))
	}
	return v & probe.Mask(bits), nil
}

// DIOToZero clocks with SWDIO low.
func (p *Probe) DIOToZero(cycles int) error {
	var seqs []SWDSequence
	for cycles > 0 {
		n := cycles
		if n > 64 {
			n = 64
		}
		seqs = append(seqs, NewSWDSequence(n, false, make([]byte, (n+7)/8)))
		cycles -= n
	}
	if len(seqs) == 0 {
		return nil
	}
	_, err := p.swd(seqs)
	return err
}

// Cycle idles the SWD line.
func (p *Probe) Cycle(n int) error { return p.DIOToZero(n) }

func (p *Probe) swd(seqs []SWDSequence) ([][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.kind != probe.KindSWD {
		return nil, fmt.Errorf("cmsisdap: SWD sequence on a %s connection", p.kind)
	}
	resp, err := p.link.WriteRead(p.protocol.EncodeSWDSequence(seqs))
	if err != nil {
		return nil, fmt.Errorf("cmsisdap: SWD sequence: %w", err)
	}
	return p.protocol.DecodeSWDSequence(resp, seqs)
}

// Close disconnects and releases the link.
func (p *Probe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link == nil {
		return probe.ErrClosed
	}
	if p.connected {
		// best effort
		_, _ = p.link.WriteRead(p.protocol.EncodeDisconnect())
		p.connected = false
	}
	err := p.link.Close()
	p.link = nil
	return err
}
