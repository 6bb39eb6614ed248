// Package cmsisdap drives CMSIS-DAP debug probes over USB. A Probe is both a
// raw JTAG shift adapter and a bit-level SWD link.
package cmsisdap

import (
	"encoding/binary"
	"fmt"
)

// Command IDs.
const (
	CmdInfo          = 0x00
	CmdHostStatus    = 0x01
	CmdConnect       = 0x02
	CmdDisconnect    = 0x03
	CmdResetTarget   = 0x0A
	CmdSWJClock      = 0x11
	CmdSWJSequence   = 0x12
	CmdSWDConfigure  = 0x13
	CmdJTAGSequence  = 0x14
	CmdJTAGConfigure = 0x15
	CmdJTAGIDCODE    = 0x16
	CmdSWDSequence   = 0x1D
)

// DAP_Info IDs.
const (
	InfoVendorID     = 0x01
	InfoProductID    = 0x02
	InfoSerialNum    = 0x03
	InfoFirmwareVer  = 0x04
	InfoCapabilities = 0xF0
	InfoPacketCount  = 0xFE
	InfoPacketSize   = 0xFF
)

// Capability bits reported by InfoCapabilities.
const (
	CapSWD  = 1 << 0
	CapJTAG = 1 << 1
)

// Connection ports.
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Status codes.
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// JTAG sequence info flags.
const (
	JTAGSeqTCKMask = 0x3F // 0 means 64
	JTAGSeqTMS     = 0x40
	JTAGSeqTDO     = 0x80
)

// SWD sequence info flags.
const (
	SWDSeqCountMask = 0x3F // 0 means 64
	SWDSeqInput     = 0x80
)

// Protocol encodes commands and decodes responses.
type Protocol struct {
	PacketSize int
}

// NewProtocol returns a codec for packets of packetSize bytes.
func NewProtocol(packetSize int) *Protocol {
	return &Protocol{PacketSize: packetSize}
}

func expect(resp []byte, cmd byte, min int) error {
	if len(resp) < min {
		return fmt.Errorf("cmsisdap: response to 0x%02X too short (%d bytes)", cmd, len(resp))
	}
	if resp[0] != cmd {
		return fmt.Errorf("cmsisdap: response ID 0x%02X, want 0x%02X", resp[0], cmd)
	}
	return nil
}

func status(resp []byte, cmd byte, what string) error {
	if err := expect(resp, cmd, 2); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("cmsisdap: %s failed (status 0x%02X)", what, resp[1])
	}
	return nil
}

// EncodeInfo builds DAP_Info.
func (p *Protocol) EncodeInfo(id byte) []byte { return []byte{CmdInfo, id} }

// DecodeInfo returns the payload of a DAP_Info response.
func (p *Protocol) DecodeInfo(resp []byte) ([]byte, error) {
	if err := expect(resp, CmdInfo, 2); err != nil {
		return nil, err
	}
	n := int(resp[1])
	if len(resp) < 2+n {
		return nil, fmt.Errorf("cmsisdap: incomplete info payload")
	}
	return resp[2 : 2+n], nil
}

// DecodeInfoString decodes a string DAP_Info response, dropping a trailing NUL.
func (p *Protocol) DecodeInfoString(resp []byte) (string, error) {
	b, err := p.DecodeInfo(resp)
	if err != nil {
		return "", err
	}
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b), nil
}

// EncodeConnect builds DAP_Connect.
func (p *Protocol) EncodeConnect(port byte) []byte { return []byte{CmdConnect, port} }

// DecodeConnect returns the port the probe connected.
func (p *Protocol) DecodeConnect(resp []byte) (byte, error) {
	if err := expect(resp, CmdConnect, 2); err != nil {
		return 0, err
	}
	if resp[1] == PortDefault {
		return 0, fmt.Errorf("cmsisdap: connect failed")
	}
	return resp[1], nil
}

// EncodeDisconnect builds DAP_Disconnect.
func (p *Protocol) EncodeDisconnect() []byte { return []byte{CmdDisconnect} }

// DecodeDisconnect checks a DAP_Disconnect response.
func (p *Protocol) DecodeDisconnect(resp []byte) error {
	return status(resp, CmdDisconnect, "disconnect")
}

// EncodeJTAGConfigure builds DAP_JTAG_Configure for a chain of IR lengths.
func (p *Protocol) EncodeJTAGConfigure(irLengths []byte) []byte {
	cmd := make([]byte, 2+len(irLengths))
	cmd[0] = CmdJTAGConfigure
	cmd[1] = byte(len(irLengths))
	copy(cmd[2:], irLengths)
	return cmd
}

// DecodeJTAGConfigure checks a DAP_JTAG_Configure response.
func (p *Protocol) DecodeJTAGConfigure(resp []byte) error {
	return status(resp, CmdJTAGConfigure, "JTAG configure")
}

// EncodeJTAGIDCODE builds DAP_JTAG_IDCODE.
func (p *Protocol) EncodeJTAGIDCODE(index byte) []byte { return []byte{CmdJTAGIDCODE, index} }

// DecodeJTAGIDCODE returns the IDCODE from a DAP_JTAG_IDCODE response.
func (p *Protocol) DecodeJTAGIDCODE(resp []byte) (uint32, error) {
	if err := status(resp, CmdJTAGIDCODE, "IDCODE read"); err != nil {
		return 0, err
	}
	if len(resp) < 6 {
		return 0, fmt.Errorf("cmsisdap: IDCODE response too short")
	}
	return binary.LittleEndian.Uint32(resp[2:6]), nil
}

// JTAGSequence is one run of clocks with a constant TMS.
type JTAGSequence struct {
	Info byte
	TDI  []byte
}

// NewJTAGSequence builds a sequence descriptor; tck of 64 encodes as 0.
func NewJTAGSequence(tck int, tms, captureTDO bool, tdi []byte) JTAGSequence {
	info := byte(tck & JTAGSeqTCKMask)
	if tms {
		info |= JTAGSeqTMS
	}
	if captureTDO {
		info |= JTAGSeqTDO
	}
	return JTAGSequence{Info: info, TDI: tdi}
}

// TCKCount returns the clock count.
func (s JTAGSequence) TCKCount() int {
	if n := int(s.Info & JTAGSeqTCKMask); n != 0 {
		return n
	}
	return 64
}

// TMS returns the TMS level held during the sequence.
func (s JTAGSequence) TMS() bool { return s.Info&JTAGSeqTMS != 0 }

// CaptureTDO reports whether TDO is returned for this sequence.
func (s JTAGSequence) CaptureTDO() bool { return s.Info&JTAGSeqTDO != 0 }

// EncodeJTAGSequence builds DAP_JTAG_Sequence.
func (p *Protocol) EncodeJTAGSequence(seqs []JTAGSequence) []byte {
	cmd := []byte{CmdJTAGSequence, byte(len(seqs))}
	for _, s := range seqs {
		cmd = append(cmd, s.Info)
		cmd = append(cmd, s.TDI...)
	}
	return cmd
}

// DecodeJTAGSequence returns the TDO bytes of every capturing sequence.
func (p *Protocol) DecodeJTAGSequence(resp []byte, seqs []JTAGSequence) ([][]byte, error) {
	if err := status(resp, CmdJTAGSequence, "JTAG sequence"); err != nil {
		return nil, err
	}
	var out [][]byte
	off := 2
	for _, s := range seqs {
		if !s.CaptureTDO() {
			continue
		}
		n := (s.TCKCount() + 7) / 8
		if off+n > len(resp) {
			return nil, fmt.Errorf("cmsisdap: incomplete TDO data")
		}
		out = append(out, append([]byte(nil), resp[off:off+n]...))
		off += n
	}
	return out, nil
}

// SWDSequence is one run of SWDIO clocks, driven by the host or sampled.
type SWDSequence struct {
	Info byte
	Data []byte
}

// NewSWDSequence builds a descriptor for bits clocks (1..64). Output
// sequences carry data; input sequences carry none.
func NewSWDSequence(bits int, input bool, data []byte) SWDSequence {
	info := byte(bits & SWDSeqCountMask)
	if input {
		info |= SWDSeqInput
		data = nil
	}
	return SWDSequence{Info: info, Data: data}
}

// Count returns the clock count.
func (s SWDSequence) Count() int {
	if n := int(s.Info & SWDSeqCountMask); n != 0 {
		return n
	}
	return 64
}

// Input reports whether the target drives SWDIO.
func (s SWDSequence) Input() bool { return s.Info&SWDSeqInput != 0 }

// EncodeSWDSequence builds DAP_SWD_Sequence.
func (p *Protocol) EncodeSWDSequence(seqs []SWDSequence) []byte {
	cmd := []byte{CmdSWDSequence, byte(len(seqs))}
	for _, s := range seqs {
		cmd = append(cmd, s.Info)
		if !s.Input() {
			cmd = append(cmd, s.Data...)
		}
	}
	return cmd
}

// DecodeSWDSequence returns the sampled bytes of every input sequence.
func (p *Protocol) DecodeSWDSequence(resp []byte, seqs []SWDSequence) ([][]byte, error) {
	if err := status(resp, CmdSWDSequence, "SWD sequence"); err != nil {
		return nil, err
	}
	var out [][]byte
	off := 2
	for _, s := range seqs {
		if !s.Input() {
			continue
		}
		n := (s.Count() + 7) / 8
		if off+n > len(resp) {
			return nil, fmt.Errorf("cmsisdap: incomplete SWDIO data")
		}
		out = append(out, append([]byte(nil), resp[off:off+n]...))
		off += n
	}
	return out, nil
}

// EncodeSWDConfigure builds DAP_SWD_Configure. turnaround is 1..4 clocks;
// dataPhase asks for a data phase on WAIT and FAULT.
func (p *Protocol) EncodeSWDConfigure(turnaround int, dataPhase bool) []byte {
	cfg := byte(turnaround-1) & 0x3
	if dataPhase {
		cfg |= 1 << 2
	}
	return []byte{CmdSWDConfigure, cfg}
}

// DecodeSWDConfigure checks a DAP_SWD_Configure response.
func (p *Protocol) DecodeSWDConfigure(resp []byte) error {
	return status(resp, CmdSWDConfigure, "SWD configure")
}

// EncodeSWJSequence builds DAP_SWJ_Sequence for 1..256 bits on SWDIO/TMS.
func (p *Protocol) EncodeSWJSequence(bits int, data []byte) []byte {
	cmd := []byte{CmdSWJSequence, byte(bits)} // 256 encodes as 0
	return append(cmd, data[:(bits+7)/8]...)
}

// DecodeSWJSequence checks a DAP_SWJ_Sequence response.
func (p *Protocol) DecodeSWJSequence(resp []byte) error {
	return status(resp, CmdSWJSequence, "SWJ sequence")
}

// EncodeSetClock builds DAP_SWJ_Clock.
func (p *Protocol) EncodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

// DecodeSetClock checks a DAP_SWJ_Clock response.
func (p *Protocol) DecodeSetClock(resp []byte) error {
	return status(resp, CmdSWJClock, "set clock")
}

// EncodeResetTarget builds DAP_ResetTarget.
func (p *Protocol) EncodeResetTarget() []byte { return []byte{CmdResetTarget} }

// DecodeResetTarget checks a DAP_ResetTarget response.
func (p *Protocol) DecodeResetTarget(resp []byte) error {
	return status(resp, CmdResetTarget, "reset target")
}
