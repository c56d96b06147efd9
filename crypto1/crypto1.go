// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypto1 simulates the MIFARE Classic Crypto1 stream cipher.  The
// 48 bit LFSR is kept as two interleaved 24 bit halves and can be clocked
// forward (crypt) or backward (rollback) one bit or one word at a time.
package crypto1

const stateMask = 0xffffff

// State is the Crypto1 LFSR split in its odd and even halves.  Only the low
// 24 bits of each half are significant.
type State struct {
	Odd  uint32
	Even uint32
}

// NewState returns the LFSR state loaded with the 48 bit key.
func NewState(key uint64) *State {
	var s State
	for i := uint(0); i < 24; i++ {
		s.Odd |= uint32(key>>(2*i+1)&1) << (i ^ 3)
		s.Even |= uint32(key>>(2*i)&1) << (i ^ 3)
	}
	return &s
}

// LFSR interleaves both halves back into the 48 bit register value, which is
// the key when called on a freshly loaded state.
func (s *State) LFSR() uint64 {
	var lfsr uint64
	for i := 23; i >= 0; i-- {
		lfsr = lfsr<<1 | uint64(Bit(s.Odd, uint(i)^3))
		lfsr = lfsr<<1 | uint64(Bit(s.Even, uint(i)^3))
	}
	return lfsr
}

// CryptOrRollbackBit clocks the LFSR one bit forward when crypt is set and
// one bit backward otherwise.  in is fed into the feedback and, when x is
// set, so is the keystream bit (the input was ciphertext).  It returns the
// keystream bit produced at the clocked position.
func (s *State) CryptOrRollbackBit(in uint32, x, crypt bool) uint32 {
	if !crypt {
		s.Odd &= stateMask
		s.Odd, s.Even = s.Even, s.Odd
	}

	ret := Filter(s.Odd)
	var feedin uint32
	if x {
		feedin = ret
	}
	if !crypt {
		feedin ^= s.Even & 1
		s.Even >>= 1
	}
	feedin ^= LFPolyEven & s.Even
	feedin ^= LFPolyOdd & s.Odd
	if in != 0 {
		feedin ^= 1
	}

	if !crypt {
		s.Even |= EvenParity32(feedin) << 23
		return ret
	}
	s.Even = (s.Even<<1 | EvenParity32(feedin)) & stateMask
	s.Odd, s.Even = s.Even, s.Odd
	return ret
}

// CryptOrRollbackWord clocks 32 bits of in.  Forward clocking walks the
// big endian bit index up from 0, rollback walks it down from 31, so a
// rollback undoes the matching crypt.
func (s *State) CryptOrRollbackWord(in uint32, x, crypt bool) uint32 {
	var ret uint32
	if crypt {
		for i := uint(0); i < 32; i++ {
			ret |= s.CryptOrRollbackBit(BEBit(in, i), x, true) << (i ^ 24)
		}
		return ret
	}
	for i := 31; i >= 0; i-- {
		ret |= s.CryptOrRollbackBit(BEBit(in, uint(i)), x, false) << (uint(i) ^ 24)
	}
	return ret
}

// CryptWord clocks in forward and returns the keystream word.
func (s *State) CryptWord(in uint32, encrypted bool) uint32 {
	return s.CryptOrRollbackWord(in, encrypted, true)
}

// RollbackWord clocks in backward and returns the keystream word that was
// produced when in was originally clocked.
func (s *State) RollbackWord(in uint32, encrypted bool) uint32 {
	return s.CryptOrRollbackWord(in, encrypted, false)
}
