// Package dump formats kernel argument buffers for trace output.
//
// The same buffer is rendered three ways — raw bytes, 32-bit ints, and
// pointer-width words — because marshaling bugs tend to be visible in one
// view and invisible in the others.
package dump

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"
)

const wordSize = int(unsafe.Sizeof(uintptr(0)))

// Lines renders buf as byte, int, and word views, one line per view.
func Lines(buf []byte) []string {
	return []string{
		"bytes:" + Bytes(buf),
		"ints:" + Ints(buf),
		"words:" + Words(buf),
	}
}

// Bytes renders buf as space-separated hex octets.
func Bytes(buf []byte) string {
	var sb strings.Builder
	for _, b := range buf {
		fmt.Fprintf(&sb, " 0x%02x", b)
	}
	return sb.String()
}

// Ints renders buf as little-endian 32-bit integers. Trailing bytes that
// do not fill a full int are omitted.
func Ints(buf []byte) string {
	var sb strings.Builder
	for i := 0; i+4 <= len(buf); i += 4 {
		fmt.Fprintf(&sb, " %d", int32(binary.LittleEndian.Uint32(buf[i:])))
	}
	return sb.String()
}

// Words renders buf as pointer-width hex words. Trailing bytes that do not
// fill a full word are omitted.
func Words(buf []byte) string {
	var sb strings.Builder
	for i := 0; i+wordSize <= len(buf); i += wordSize {
		var w uint64
		if wordSize == 8 {
			w = binary.LittleEndian.Uint64(buf[i:])
		} else {
			w = uint64(binary.LittleEndian.Uint32(buf[i:]))
		}
		fmt.Fprintf(&sb, " 0x%0*x", wordSize*2, w)
	}
	return sb.String()
}
