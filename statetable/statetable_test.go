// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statetable

import (
	"context"
	"slices"
	"testing"

	"github.com/companyzero/mfkey/crypto1"
	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

// naiveExtend extends every entry with both candidate bits and keeps the
// ones producing bit.
func naiveExtend(t Table, bit uint32, h *Half) Table {
	var out Table
	for _, x := range t {
		v := x << 1
		for b := uint32(0); b < 2; b++ {
			if crypto1.Filter(v|b) != bit {
				continue
			}
			if h != nil {
				out = append(out, updateContribution(v|b, h.M1, h.M2))
			} else {
				out = append(out, v|b)
			}
		}
	}
	out.Sort()
	return out
}

func diffTables(t *testing.T, got, want Table) {
	t.Helper()
	if slices.Equal(got, want) {
		return
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(spew.Sdump(want)),
		B:        difflib.SplitLines(spew.Sdump(got)),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		t.Fatal(err)
	}
	t.Fatalf("tables differ (%v vs %v entries)\n%v", len(got), len(want),
		text)
}

func TestSeed(t *testing.T) {
	for bit := uint32(0); bit < 2; bit++ {
		s := Seed(bit, 1<<10)
		for _, v := range s {
			if crypto1.Filter(v) != bit {
				t.Fatalf("seed %x does not produce %v", v, bit)
			}
		}
		if s[0] != 1<<10 && crypto1.Filter(1<<10) == bit {
			t.Fatalf("limit must be included")
		}
	}
}

func TestExtendSimple(t *testing.T) {
	start := Seed(1, 1<<12)
	for _, bit := range []uint32{0, 1, 1, 0} {
		want := naiveExtend(start, bit, nil)
		got := slices.Clone(start).ExtendSimple(bit)
		got.Sort()
		diffTables(t, got, want)
		start = want
	}
}

func TestExtendContribution(t *testing.T) {
	start := Seed(0, 1<<12)
	for _, bit := range []uint32{1, 0, 0, 1, 1} {
		start = start.ExtendSimple(bit)
	}
	start.Sort()
	for _, h := range []Half{Odd, Even} {
		cur := slices.Clone(start)
		for _, bit := range []uint32{0, 1, 1, 0} {
			want := naiveExtend(cur, bit, &h)
			got := slices.Clone(cur).Extend(bit, h)
			got.Sort()
			diffTables(t, got, want)
			cur = want
		}
	}
}

func TestExtendEdges(t *testing.T) {
	var empty Table
	if len(empty.ExtendSimple(1)) != 0 {
		t.Fatalf("empty table grew")
	}

	// find a value whose two extensions both filter to its own bit and
	// one whose extensions filter to the opposite bit
	var dup, drop uint32
	foundDup, foundDrop := false, false
	for x := uint32(1); x < 1<<20 && !(foundDup && foundDrop); x++ {
		v := x << 1
		f := crypto1.Filter(v)
		if f != crypto1.Filter(v|1) {
			continue
		}
		if f == 1 && !foundDup {
			dup, foundDup = x, true
		}
		if f == 0 && !foundDrop {
			drop, foundDrop = x, true
		}
	}
	if !foundDup || !foundDrop {
		t.Fatalf("no test values")
	}

	got := Table{dup}.ExtendSimple(1)
	got.Sort()
	diffTables(t, got, Table{dup << 1, dup<<1 | 1})

	got = Table{drop}.ExtendSimple(1)
	if len(got) != 0 {
		t.Fatalf("entry not dropped: %v", got)
	}

	got = Table{drop, dup, drop}.ExtendSimple(1)
	got.Sort()
	diffTables(t, got, Table{dup << 1, dup<<1 | 1})
}

func TestUpdateContribution(t *testing.T) {
	if got := updateContribution(0xff000001, 1, 2); got != 0xfe000001 {
		t.Fatalf("got %08x", got)
	}
	if got := updateContribution(0x00000003, 1, 2); got != 0x03000003 {
		t.Fatalf("got %08x", got)
	}
}

func TestIntersect(t *testing.T) {
	odd := Table{0x01000001, 0x02000001, 0x02000002, 0x05000000}
	even := Table{0x00000007, 0x02000009, 0x03000001, 0x05000001,
		0x05000002}

	var msbs []uint32
	Intersect(odd, even, func(o, e Table) bool {
		for _, v := range append(slices.Clone(o), e...) {
			if v>>24 != o[0]>>24 {
				t.Fatalf("mixed bucket %v %v", o, e)
			}
		}
		msbs = append(msbs, o[0]>>24)
		switch o[0] >> 24 {
		case 2:
			if len(o) != 2 || len(e) != 1 {
				t.Fatalf("bucket 2: %v %v", o, e)
			}
		case 5:
			if len(o) != 1 || len(e) != 2 {
				t.Fatalf("bucket 5: %v %v", o, e)
			}
		}
		return false
	})
	if !slices.Equal(msbs, []uint32{5, 2}) {
		t.Fatalf("visited %v", msbs)
	}

	stopped := Intersect(odd, even, func(o, e Table) bool {
		return true
	})
	if !stopped {
		t.Fatalf("intersect did not stop")
	}
}

func TestMSBRange(t *testing.T) {
	tbl := Table{0x00000001, 0x0f000000, 0x10000000, 0x1fffffff,
		0x20000000}
	diffTables(t, tbl.MSBRange(0x10, 0x20), Table{0x10000000, 0x1fffffff})
	diffTables(t, tbl.MSBRange(0, 0x10), Table{0x00000001, 0x0f000000})
	if len(tbl.MSBRange(0x30, 0x40)) != 0 {
		t.Fatalf("empty range not empty")
	}
}

func TestBucketCompleteness(t *testing.T) {
	const chunks = 16
	for _, h := range []Half{Odd, Even} {
		b := &Builder{
			KS:    0xa5c3,
			Half:  h,
			Limit: 1 << 13,
		}
		full, err := b.Build(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(full) == 0 {
			t.Fatalf("%v: empty table", h.Name)
		}

		var union Table
		step := uint32(MSBCount / chunks)
		for c := uint32(0); c < chunks; c++ {
			part, err := b.BuildRange(context.Background(),
				c*step, (c+1)*step)
			if err != nil {
				t.Fatal(err)
			}
			diffTables(t, part, full.MSBRange(c*step, (c+1)*step))
			union = append(union, part...)
		}
		diffTables(t, union, full)
	}
}

func TestBuildRangeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBuilder(0x1234, Odd)
	if _, err := b.BuildRange(ctx, 0, 16); err != context.Canceled {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, limit := range []uint32{SeedLimit, 1 << 13} {
		b := &Builder{KS: 0x1234, Half: Even, Limit: limit}
		if _, err := b.Build(ctx); err != context.Canceled {
			t.Fatalf("%v: expected cancellation, got %v", limit, err)
		}
	}
}
