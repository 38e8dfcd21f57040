// Package protocol implements the Lurk wire catalog: typed messages,
// their fixed/variable layouts, and the decoder/encoder pair that moves
// between bytes and Go values.
package protocol

import "strings"

// NameSize is the fixed width of a Name on the wire.
const NameSize = 32

// Name is the 32-byte opaque identifier used for players and rooms.
// It is compared by raw byte equality; scripts see it as a lossy UTF-8
// string.
type Name [NameSize]byte

// NameFromString pads or truncates s to NameSize bytes.
func NameFromString(s string) Name {
	var n Name
	copy(n[:], s)
	return n
}

// Equal reports whether the two names have identical bytes.
func (n Name) Equal(other Name) bool { return n == other }

// String returns the lossy UTF-8 decoding of the full 32 bytes, including
// any trailing zero padding.
func (n Name) String() string {
	return strings.ToValidUTF8(string(n[:]), "�")
}
