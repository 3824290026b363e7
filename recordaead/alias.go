package recordaead

import "unsafe"

// aliases reports whether x and y share any memory. Sealing into a buffer
// that overlaps the plaintext would silently corrupt the output, so Seal
// rejects it up front.
func aliases(x, y []byte) bool {
	if len(x) == 0 || len(y) == 0 {
		return false
	}
	x0 := uintptr(unsafe.Pointer(&x[0]))
	y0 := uintptr(unsafe.Pointer(&y[0]))
	return x0 <= y0+uintptr(len(y)-1) && y0 <= x0+uintptr(len(x)-1)
}
