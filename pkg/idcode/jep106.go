package idcode

import "fmt"

// manufacturers holds the designers commonly found in DP identification
// registers, keyed by 11-bit code.
var manufacturers = map[uint16]Manufacturer{
	JEP106(1, 0x01):  {Name: "AMD", Abbreviation: "AMD"},
	JEP106(1, 0x0E):  {Name: "Freescale (Motorola)", Abbreviation: "Freescale"},
	JEP106(1, 0x15):  {Name: "NXP (Philips)", Abbreviation: "NXP"},
	JEP106(1, 0x17):  {Name: "Texas Instruments", Abbreviation: "TI"},
	JEP106(1, 0x1F):  {Name: "Atmel", Abbreviation: "Atmel"},
	JEP106(1, 0x20):  {Name: "STMicroelectronics", Abbreviation: "STM"},
	JEP106(1, 0x29):  {Name: "Microchip", Abbreviation: "Microchip"},
	JEP106(1, 0x34):  {Name: "Cypress", Abbreviation: "Cypress"},
	JEP106(1, 0x49):  {Name: "Xilinx", Abbreviation: "Xilinx"},
	JEP106(1, 0x6E):  {Name: "Altera", Abbreviation: "Altera"},
	JEP106(2, 0x41):  {Name: "Infineon", Abbreviation: "Infineon"},
	JEP106(5, 0x3B):  {Name: "ARM Ltd", Abbreviation: "ARM"},
	JEP106(5, 0x43):  {Name: "Silicon Labs", Abbreviation: "SiLabs"},
	JEP106(5, 0x44):  {Name: "Nordic Semiconductor", Abbreviation: "Nordic"},
	JEP106(15, 0x51): {Name: "GigaDevice", Abbreviation: "GigaDevice"},
	JEP106(19, 0x27): {Name: "Raspberry Pi", Abbreviation: "RPi"},
	JEP106(25, 0x12): {Name: "Espressif", Abbreviation: "Espressif"},
}

func init() {
	for code, m := range manufacturers {
		m.Code = code
		manufacturers[code] = m
	}
}

// LookupManufacturer returns the manufacturer for an 11-bit JEP106 code.
// Unknown codes get a placeholder entry and false.
func LookupManufacturer(code uint16) (Manufacturer, bool) {
	m, ok := manufacturers[code]
	if !ok {
		return Manufacturer{
			Code:         code,
			Name:         fmt.Sprintf("Unknown (0x%03X)", code),
			Abbreviation: "Unknown",
		}, false
	}
	return m, true
}
