// Package deviceinfo names the debug ports found in the wild from their
// identification registers.
package deviceinfo

import "github.com/OpenTraceLab/OpenTraceADI/pkg/idcode"

type key struct {
	designer uint16
	part     uint16
}

var (
	jtagDB = make(map[key]DeviceInfo)
	swdDB  = make(map[key]DeviceInfo)
)

func init() {
	arm := idcode.JEP106(5, 0x3B)

	jtagDB[key{arm, 0xBA00}] = DeviceInfo{Name: "JTAG-DP", Description: "ARM JTAG-DP (Cortex-M3/M4, CoreSight SoC)", Transport: "jtag", ADIVersion: 5, IRLength: 4}
	jtagDB[key{arm, 0xBA01}] = DeviceInfo{Name: "SWJ-DP", Description: "ARM SWJ-DP in JTAG mode", Transport: "jtag", ADIVersion: 5, IRLength: 4}
	jtagDB[key{arm, 0xBA04}] = DeviceInfo{Name: "JTAG-DP", Description: "ARM JTAG-DP (CoreSight SoC-600)", Transport: "jtag", ADIVersion: 6, IRLength: 4}

	swdDB[key{arm, 0xBA}] = DeviceInfo{Name: "SW-DP", Description: "ARM SW-DP (Cortex-M3/M4)", Transport: "swd", ADIVersion: 5}
	swdDB[key{arm, 0xBB}] = DeviceInfo{Name: "SW-DP", Description: "ARM SW-DP (Cortex-M0)", Transport: "swd", ADIVersion: 5}
	swdDB[key{arm, 0xBC}] = DeviceInfo{Name: "SW-DP", Description: "ARM SW-DP (Cortex-M0+, multi-drop capable)", Transport: "swd", ADIVersion: 5}
	swdDB[key{arm, 0xBD}] = DeviceInfo{Name: "SW-DP", Description: "ARM SW-DP (CoreSight SoC-600)", Transport: "swd", ADIVersion: 6}
}

func unknown(m idcode.Manufacturer, transport string) DeviceInfo {
	return DeviceInfo{
		Manufacturer: m,
		Name:         "Unknown device",
		Description:  "No entry in device database",
		Transport:    transport,
	}
}

// LookupIDCode names the JTAG-DP behind a JTAG IDCODE.
func LookupIDCode(raw uint32) DeviceInfo {
	id := idcode.ParseIDCode(raw)
	m, _ := idcode.LookupManufacturer(id.ManufacturerCode)
	if info, ok := jtagDB[key{id.ManufacturerCode, id.PartNumber}]; ok {
		info.Manufacturer = m
		return info
	}
	return unknown(m, "jtag")
}

// LookupDPIDR names the SW-DP behind a DPIDR. DPv3 ports are always ADIv6.
func LookupDPIDR(raw uint32) DeviceInfo {
	d := idcode.ParseDPIDR(raw)
	m, _ := idcode.LookupManufacturer(d.Designer)
	info, ok := swdDB[key{d.Designer, uint16(d.PartNumber)}]
	if !ok {
		info = unknown(m, "swd")
	}
	info.Manufacturer = m
	if d.Version >= 3 {
		info.ADIVersion = 6
	}
	return info
}
