// Package adi implements the ARM Debug Interface (ADIv5 and ADIv6) transaction
// layer on top of a JTAG or SWD link.
//
// The layering follows the way a debugger talks to a DAP:
//
//	MemAP   CSW/TAR/DRW programming, byte lanes, auto-increment tracking
//	AP      APACC register access through the DP SELECT register
//	DebugPort
//	        DP register access, SELECT caching, ORUNDETECT tracking
//	JTAGFramer / SWDFramer
//	        IR selection and 35-bit DR scans, or SWD request packets
//	probe   the physical link
//
// The engines are synchronous and single threaded. A DebugPort and the APs
// built on it own their caches exclusively; nothing outside this package
// writes SELECT, CSW or TAR behind their back.
//
// Misuse that a test sequence may issue on purpose (reading a write-only
// register, naming an unknown register) is logged and reported as a non-fatal
// *AccessError without touching the link. Use IsNonFatal to tell those apart
// from errors that must stop the session.
package adi
