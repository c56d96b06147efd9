// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statetable

import (
	"context"

	"github.com/companyzero/mfkey/crypto1"
)

// sweep cancellation is polled every this many seeds
const pollSeeds = 1 << 15

// Builder produces the MSB bucketed table of one LFSR half for a 16 bit
// half keystream.  Bit 0 of KS is consumed by the seed, bits 1 through
// PrefixRounds by the extension rounds.
type Builder struct {
	KS    uint32
	Half  Half
	Limit uint32 // largest seed, SeedLimit when zero
}

// NewBuilder returns a Builder over the full seed space.
func NewBuilder(ks uint32, h Half) *Builder {
	return &Builder{
		KS:    ks,
		Half:  h,
		Limit: SeedLimit,
	}
}

func (b *Builder) limit() uint32 {
	if b.Limit == 0 {
		return SeedLimit
	}
	return b.Limit
}

func (b *Builder) rounds(t Table) Table {
	for round := uint(1); round <= SimpleRounds; round++ {
		t = t.ExtendSimple(b.KS >> round & 1)
		if len(t) == 0 {
			return t
		}
	}
	for round := uint(SimpleRounds + 1); round <= PrefixRounds; round++ {
		t = t.Extend(b.KS>>round&1, b.Half)
		if len(t) == 0 {
			return t
		}
	}
	return t
}

// Build sweeps all seeds at once and returns the complete sorted table
// with duplicates removed.
func (b *Builder) Build(ctx context.Context) (Table, error) {
	t, err := seed(ctx, b.KS&1, b.limit())
	if err != nil {
		return nil, err
	}
	t = b.rounds(t)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.Compact(), nil
}

// BuildRange extends every seed on its own and keeps only the states whose
// MSB lies in [lo, hi).  It needs memory for one MSB range only at the cost
// of a full seed sweep per call.  The union of BuildRange over a partition
// of [0, MSBCount) equals Build.
func (b *Builder) BuildRange(ctx context.Context, lo, hi uint32) (Table, error) {
	var (
		out Table
		buf = make(Table, 0, 64)
	)
	bit := b.KS & 1
	for seed := int64(b.limit()); seed >= 0; seed-- {
		if seed%pollSeeds == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if crypto1.Filter(uint32(seed)) != bit {
			continue
		}
		buf = append(buf[:0], uint32(seed))
		buf = b.rounds(buf)
		for _, v := range buf {
			if msb := v >> 24; msb >= lo && msb < hi {
				out = append(out, v)
			}
		}
	}
	return out.Compact(), nil
}
