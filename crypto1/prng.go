// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto1

// PRNGSuccessor advances the tag's 16 bit nonce generator n times starting
// at nonce x.  The reader answers a tag nonce nt with PRNGSuccessor(nt, 64).
func PRNGSuccessor(x, n uint32) uint32 {
	x = SwapEndian32(x)
	for ; n > 0; n-- {
		x = x>>1 | (x>>16^x>>18^x>>19^x>>21)<<31
	}
	return SwapEndian32(x)
}
