// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recovery

import "github.com/companyzero/mfkey/crypto1"

// Params holds the values of two captured authentications that candidate
// states are verified against.  P64 and P64B are the reader answers
// PRNGSuccessor(nt, 64) of the first and second tag nonce.
type Params struct {
	NR0Enc    uint32
	AR0Enc    uint32
	UIDXorNT0 uint32
	P64       uint32

	UIDXorNT1 uint32
	NR1Enc    uint32
	AR1Enc    uint32
	P64B      uint32
}

// NewParams derives Params from the raw fields of an authentication pair.
func NewParams(uid, nt0, nr0Enc, ar0Enc, nt1, nr1Enc, ar1Enc uint32) *Params {
	return &Params{
		NR0Enc:    nr0Enc,
		AR0Enc:    ar0Enc,
		UIDXorNT0: uid ^ nt0,
		P64:       crypto1.PRNGSuccessor(nt0, 64),
		UIDXorNT1: uid ^ nt1,
		NR1Enc:    nr1Enc,
		AR1Enc:    ar1Enc,
		P64B:      crypto1.PRNGSuccessor(nt1, 64),
	}
}

// KS2 returns the keystream that encrypted the first reader answer.
func (p *Params) KS2() uint32 {
	return p.AR0Enc ^ p.P64
}

// Check verifies a candidate state, taken right after the first reader
// answer was encrypted, by rolling it back to the start of the first
// authentication and replaying the second one.  It returns the key when
// the replay reproduces the captured second answer.
func (p *Params) Check(s crypto1.State) (uint64, bool) {
	if s.Odd|s.Even == 0 {
		return 0, false
	}
	if s.RollbackWord(0, false)^p.P64 != p.AR0Enc {
		return 0, false
	}
	s.RollbackWord(p.NR0Enc, true)
	s.RollbackWord(p.UIDXorNT0, false)
	start := s

	s.CryptWord(p.UIDXorNT1, false)
	s.CryptWord(p.NR1Enc, true)
	if s.CryptWord(0, false)^p.P64B != p.AR1Enc {
		return 0, false
	}
	return start.LFSR(), true
}

// answer replays one authentication from a key and returns the encrypted
// reader answer it would produce.
func answer(key uint64, uidXorNT, nrEnc, p64 uint32) uint32 {
	s := crypto1.NewState(key)
	s.CryptWord(uidXorNT, false)
	s.CryptWord(nrEnc, true)
	return s.CryptWord(0, false) ^ p64
}

// Solves reports whether key reproduces both captured authentications.
// It is the cheap test used for keys that are already known.
func (p *Params) Solves(key uint64) bool {
	return answer(key, p.UIDXorNT1, p.NR1Enc, p.P64B) == p.AR1Enc &&
		answer(key, p.UIDXorNT0, p.NR0Enc, p.P64) == p.AR0Enc
}
