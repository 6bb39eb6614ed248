package cmsisdap

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/OpenTraceADI/pkg/probe"
)

// InterfaceKind categorizes adapter families.
type InterfaceKind string

const (
	InterfaceKindCMSISDAP InterfaceKind = "cmsis-dap"
	InterfaceKindSim      InterfaceKind = "simulator"
)

// InterfaceInfo describes one debug probe found on the host.
type InterfaceInfo struct {
	Kind        InterfaceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	// Bus and Address locate a USB probe; both are zero for the simulator.
	Bus     int
	Address int
	// Transports lists the debug ports the probe family can drive.
	Transports []probe.Kind
}

// Label returns a user-facing description.
func (i InterfaceInfo) Label() string {
	name := i.Description
	if name == "" {
		name = fmt.Sprintf("%s %04X:%04X", i.Kind, i.VendorID, i.ProductID)
	}
	if i.Kind == InterfaceKindSim {
		return name
	}
	return fmt.Sprintf("%s at bus %d addr %d", name, i.Bus, i.Address)
}

// TransportList renders Transports as "jtag,swd".
func (i InterfaceInfo) TransportList() string {
	names := make([]string, len(i.Transports))
	for n, k := range i.Transports {
		names[n] = k.String()
	}
	return strings.Join(names, ",")
}

// KnownProbe is a recognized CMSIS-DAP probe model.
type KnownProbe struct {
	VendorID    uint16
	ProductID   uint16
	Description string
	Transports  []probe.Kind
}

var swj = []probe.Kind{probe.KindJTAG, probe.KindSWD}

// KnownProbes lists the VID:PID pairs recognized as CMSIS-DAP probes.
var KnownProbes = []KnownProbe{
	{VendorIDRaspberryPi, ProductIDDebugProbe, "Raspberry Pi Debug Probe", swj},
	{0x0D28, 0x0204, "Arm DAPLink", []probe.Kind{probe.KindSWD}},
	{0x1366, 0x0101, "SEGGER J-Link (CMSIS-DAP mode)", swj},
	{0xC251, 0xF001, "Keil ULINKplus", swj},
}

// Classify matches a VID:PID against KnownProbes.
func Classify(vid, pid uint16) (InterfaceInfo, bool) {
	for _, k := range KnownProbes {
		if k.VendorID != vid || k.ProductID != pid {
			continue
		}
		return InterfaceInfo{
			Kind:        InterfaceKindCMSISDAP,
			Description: k.Description,
			VendorID:    vid,
			ProductID:   pid,
			Transports:  k.Transports,
		}, true
	}
	return InterfaceInfo{}, false
}

// DiscoverInterfaces walks the USB bus for known probes without opening
// them. The simulator entry is always last so callers can run without
// hardware.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		if info, ok := Classify(uint16(desc.Vendor), uint16(desc.Product)); ok {
			info.Bus, info.Address = desc.Bus, desc.Address
			results = append(results, info)
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, fmt.Errorf("cmsisdap: enumerate usb: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	results = append(results, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulator (no hardware)",
		Transports:  swj,
	})
	return results, nil
}
