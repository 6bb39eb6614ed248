package cmsisdap

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Well-known probe identifiers.
const (
	VendorIDRaspberryPi = 0x2E8A
	ProductIDDebugProbe = 0x000C

	DefaultPacketSize = 64
	DefaultTimeout    = 5 * time.Second
)

// Link carries one command packet and returns the response packet.
type Link interface {
	WriteRead(cmd []byte) ([]byte, error)
	PacketSize() int
	Close() error
}

// USBTransport is a Link over the probe's vendor-class bulk endpoints.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
	timeout    time.Duration
}

// OpenUSB opens the first device matching vid:pid.
func OpenUSB(vid, pid uint16) (*USBTransport, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("cmsisdap: open %04X:%04X: %w", vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("cmsisdap: device %04X:%04X not found", vid, pid)
	}
	// not supported on every platform
	_ = dev.SetAutoDetach(true)

	t := &USBTransport{
		ctx:        ctx,
		dev:        dev,
		packetSize: DefaultPacketSize,
		timeout:    DefaultTimeout,
	}
	if err := t.claim(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// claim takes the vendor-class interface, falling back to interface 0.
func (t *USBTransport) claim() error {
	cfg, err := t.dev.Config(1)
	if err != nil {
		return fmt.Errorf("cmsisdap: get config: %w", err)
	}
	t.cfg = cfg

	num := 0
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			num = intf.Number
			break
		}
	}
	intf, err := cfg.Interface(num, 0)
	if err != nil {
		return fmt.Errorf("cmsisdap: claim interface %d: %w", num, err)
	}
	t.intf = intf
	return t.endpoints()
}

func (t *USBTransport) endpoints() error {
	var out, in int
	for _, ep := range t.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && out == 0:
			out = ep.Number
		case ep.Direction == gousb.EndpointDirectionIn && in == 0:
			in = ep.Number
			t.packetSize = ep.MaxPacketSize
		}
	}
	if out == 0 || in == 0 {
		return fmt.Errorf("cmsisdap: bulk endpoints not found")
	}
	var err error
	if t.epOut, err = t.intf.OutEndpoint(out); err != nil {
		return fmt.Errorf("cmsisdap: open OUT endpoint: %w", err)
	}
	if t.epIn, err = t.intf.InEndpoint(in); err != nil {
		return fmt.Errorf("cmsisdap: open IN endpoint: %w", err)
	}
	return nil
}

// WriteRead sends one padded packet and reads one back.
func (t *USBTransport) WriteRead(cmd []byte) ([]byte, error) {
	if len(cmd) > t.packetSize {
		return nil, fmt.Errorf("cmsisdap: command of %d bytes exceeds packet size %d", len(cmd), t.packetSize)
	}
	packet := make([]byte, t.packetSize)
	copy(packet, cmd)
	if _, err := t.epOut.Write(packet); err != nil {
		return nil, fmt.Errorf("cmsisdap: USB write: %w", err)
	}
	resp := make([]byte, t.packetSize)
	n, err := t.epIn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("cmsisdap: USB read: %w", err)
	}
	return resp[:n], nil
}

// PacketSize returns the bulk IN packet size.
func (t *USBTransport) PacketSize() int { return t.packetSize }

// SetTimeout sets the transfer timeout.
func (t *USBTransport) SetTimeout(d time.Duration) { t.timeout = d }

// Close releases the interface, device and context.
func (t *USBTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}
