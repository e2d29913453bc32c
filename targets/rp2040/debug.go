//go:build rp2040

package main

import (
	"machine"

	"paddle/core"
)

// initDebug routes controller debug output to the USB CDC console
func initDebug(enabled bool) {
	core.SetDebugWriter(func(msg string) {
		machine.Serial.Write([]byte(msg))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(enabled)
}

// utoa converts uint32 to string without importing strconv (for embedded)
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
