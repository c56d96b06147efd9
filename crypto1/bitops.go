// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto1

import "math/bits"

// Feedback polynomials of the odd and even halves of the 48 bit LFSR.
const (
	LFPolyOdd  = 0x29CE5C
	LFPolyEven = 0x870804
)

// Bit returns bit n of x as 0 or 1.
func Bit(x uint32, n uint) uint32 {
	return x >> n & 1
}

// BEBit returns bit n of x using big endian byte numbering.  The keystream
// is produced most significant bit first per byte while words are handled
// little endian.
func BEBit(x uint32, n uint) uint32 {
	return Bit(x, n^24)
}

// SwapEndian32 reverses the byte order of x.
func SwapEndian32(x uint32) uint32 {
	return bits.ReverseBytes32(x)
}

// EvenParity32 returns 1 when x has an odd number of bits set.
func EvenParity32(x uint32) uint32 {
	return uint32(bits.OnesCount32(x) & 1)
}

// Filter is the Crypto1 output function.  Only the low 20 bits of x, taken
// as five nibbles, are significant.
func Filter(x uint32) uint32 {
	f := uint32(0xf22c0) >> (x & 0xf) & 16
	f |= uint32(0x6c9c0) >> (x >> 4 & 0xf) & 8
	f |= uint32(0x3c8b0) >> (x >> 8 & 0xf) & 4
	f |= uint32(0x1e458) >> (x >> 12 & 0xf) & 2
	f |= uint32(0x0d938) >> (x >> 16 & 0xf) & 1
	return uint32(0xEC57E80A) >> f & 1
}
