// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package statetable builds the tables of partial Crypto1 LFSR halves that
// are consistent with a keystream.  Every entry keeps a 24 bit window of one
// LFSR half in its low bits and a running parity contribution in its top
// byte (the MSB).  Odd and even tables are matched on that MSB.
package statetable

import (
	"context"
	"slices"
	"sort"

	"github.com/companyzero/mfkey/crypto1"
)

const (
	// SeedLimit is the largest seed of the initial sweep; seeds run from
	// 0 through SeedLimit inclusive.
	SeedLimit = 1 << 20

	// SimpleRounds is the number of extensions done before the parity
	// contribution is tracked.
	SimpleRounds = 4

	// PrefixRounds is the number of extension rounds a Builder applies
	// before the tables are first bucketed by MSB.
	PrefixRounds = SimpleRounds + 4

	// MSBCount is the number of distinct contribution tags.
	MSBCount = 256

	windowMask = 0xffffff
)

// Half selects the contribution masks of one LFSR half.
type Half struct {
	Name string
	M1   uint32
	M2   uint32
}

var (
	// Odd is used for the table driven by the odd keystream bits.
	Odd = Half{
		Name: "odd",
		M1:   crypto1.LFPolyEven<<1 | 1,
		M2:   crypto1.LFPolyOdd << 1,
	}

	// Even is used for the table driven by the even keystream bits.
	Even = Half{
		Name: "even",
		M1:   crypto1.LFPolyOdd,
		M2:   crypto1.LFPolyEven<<1 | 1,
	}
)

// Table is a list of packed partial states.
type Table []uint32

// Seed returns every value in [0, limit] whose filter output is bit.
func Seed(bit, limit uint32) Table {
	t, _ := seed(context.Background(), bit, limit)
	return t
}

// seed is Seed that polls ctx every pollSeeds candidates.
func seed(ctx context.Context, bit, limit uint32) (Table, error) {
	t := make(Table, 0, limit/2+1)
	for i := int64(limit); i >= 0; i-- {
		if i%pollSeeds == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if crypto1.Filter(uint32(i)) == bit {
			t = append(t, uint32(i))
		}
	}
	return t, nil
}

func updateContribution(item, m1, m2 uint32) uint32 {
	p := item >> 25
	p = p<<1 | crypto1.EvenParity32(item&m1)
	p = p<<1 | crypto1.EvenParity32(item&m2)
	return p<<24 | item&windowMask
}

// ExtendSimple shifts every entry by one bit and keeps the extensions whose
// filter output is bit.  Entries with two valid extensions are duplicated,
// entries with none are dropped.  Order is not preserved.
func (t Table) ExtendSimple(bit uint32) Table {
	return t.extend(bit, nil)
}

// Extend is ExtendSimple that also folds two parity bits, selected by h,
// into the MSB contribution of every surviving entry.
func (t Table) Extend(bit uint32, h Half) Table {
	return t.extend(bit, &h)
}

func (t Table) extend(bit uint32, h *Half) Table {
	fix := func(v uint32) uint32 {
		if h == nil {
			return v
		}
		return updateContribution(v, h.M1, h.M2)
	}

	for i := 0; i < len(t); {
		v := t[i] << 1
		f := crypto1.Filter(v)
		switch {
		case f != crypto1.Filter(v|1):
			// exactly one extension produces bit
			t[i] = fix(v | (f ^ bit))
			i++

		case f == bit:
			// both extensions produce bit; park the next unvisited
			// entry at the end and insert the second extension
			if i+1 < len(t) {
				t = append(t, t[i+1])
			} else {
				t = append(t, 0)
			}
			t[i] = fix(v)
			t[i+1] = fix(v | 1)
			i += 2

		default:
			last := len(t) - 1
			t[i] = t[last]
			t = t[:last]
		}
	}
	return t
}

// Sort orders t ascending which groups entries by MSB.
func (t Table) Sort() {
	slices.Sort(t)
}

// Compact sorts t and removes duplicate entries.
func (t Table) Compact() Table {
	t.Sort()
	return slices.Compact(t)
}

// MSBRange returns the sub table of the sorted table t whose MSB lies in
// [lo, hi).
func (t Table) MSBRange(lo, hi uint32) Table {
	start := sort.Search(len(t), func(i int) bool {
		return t[i]>>24 >= lo
	})
	end := sort.Search(len(t), func(i int) bool {
		return t[i]>>24 >= hi
	})
	return t[start:end]
}

// msbStart returns the index of the first entry sharing the MSB of t[end-1].
func (t Table) msbStart(end int) int {
	msb := t[end-1] >> 24
	return sort.Search(end, func(i int) bool {
		return t[i]>>24 >= msb
	})
}

// Intersect walks the sorted tables odd and even from the highest MSB down
// and calls fn for every MSB present in both.  It stops and returns true
// as soon as fn does.
func Intersect(odd, even Table, fn func(o, e Table) bool) bool {
	oi, ei := len(odd), len(even)
	for oi > 0 && ei > 0 {
		om, em := odd[oi-1]>>24, even[ei-1]>>24
		switch {
		case om == em:
			o0, e0 := odd.msbStart(oi), even.msbStart(ei)
			if fn(odd[o0:oi], even[e0:ei]) {
				return true
			}
			oi, ei = o0, e0
		case om > em:
			oi = odd.msbStart(oi)
		default:
			ei = even.msbStart(ei)
		}
	}
	return false
}
