// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package recovery recovers a MIFARE Classic sector key from two captured
// authentications.  The 32 bit keystream of the first reader answer is split
// into its odd and even bits, both halves of the LFSR are searched
// independently and the partial states are matched on their parity
// contribution.  Every full candidate is verified by replaying the captured
// exchange.
package recovery

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"

	"github.com/companyzero/mfkey/crypto1"
	"github.com/companyzero/mfkey/statetable"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunks is the number of MSB ranges the search is split in.
	DefaultChunks = 16

	// keystream bits per half not consumed by the table builder
	searchRounds = 15 - statetable.PrefixRounds
)

var (
	// ErrChunks is returned when the chunk count does not divide the MSB
	// space evenly.
	ErrChunks = errors.New("chunk count must divide 256")
)

// Recoverer runs key searches.  The zero value searches DefaultChunks
// chunks on all CPUs with full tables.
type Recoverer struct {
	Chunks    int  // MSB ranges, must divide 256
	Workers   int  // chunks searched concurrently
	LowMemory bool // rebuild the tables for every chunk
}

// New returns a Recoverer after validating its settings.
func New(chunks, workers int, lowMemory bool) (*Recoverer, error) {
	if chunks <= 0 || chunks > statetable.MSBCount ||
		statetable.MSBCount%chunks != 0 {
		return nil, ErrChunks
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Recoverer{
		Chunks:    chunks,
		Workers:   workers,
		LowMemory: lowMemory,
	}, nil
}

func (r *Recoverer) chunks() int {
	if r.Chunks <= 0 || statetable.MSBCount%r.Chunks != 0 {
		return DefaultChunks
	}
	return r.Chunks
}

func (r *Recoverer) workers() int {
	if r.Workers <= 0 {
		return runtime.NumCPU()
	}
	return r.Workers
}

// SplitKeystream returns the odd and even indexed bits of ks2 in the order
// the cipher produced them, oldest bit in bit 0.
func SplitKeystream(ks2 uint32) (oks, eks uint32) {
	for i := 31; i >= 0; i -= 2 {
		oks = oks<<1 | crypto1.BEBit(ks2, uint(i))
	}
	for i := 30; i >= 0; i -= 2 {
		eks = eks<<1 | crypto1.BEBit(ks2, uint(i))
	}
	return oks, eks
}

// Recover searches the key that produced keystream ks2 and verifies every
// candidate against p.  It returns ok false when no candidate verifies.  An
// error is only returned when ctx is done before the search completes.
func (r *Recoverer) Recover(ctx context.Context, ks2 uint32, p *Params) (uint64, bool, error) {
	oks, eks := SplitKeystream(ks2)
	oddB := statetable.NewBuilder(oks, statetable.Odd)
	evenB := statetable.NewBuilder(eks, statetable.Even)

	var odd, even statetable.Table
	if !r.LowMemory {
		eg, bctx := errgroup.WithContext(ctx)
		eg.Go(func() (err error) {
			odd, err = oddB.Build(bctx)
			return err
		})
		eg.Go(func() (err error) {
			even, err = evenB.Build(bctx)
			return err
		})
		if err := eg.Wait(); err != nil {
			return 0, false, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers())

	var (
		mtx   sync.Mutex
		key   uint64
		found bool
	)
	step := uint32(statetable.MSBCount / r.chunks())
	for lo := uint32(0); lo < statetable.MSBCount; lo += step {
		lo, hi := lo, lo+step
		eg.Go(func() error {
			var o, e statetable.Table
			if r.LowMemory {
				var err error
				o, err = oddB.BuildRange(ectx, lo, hi)
				if err != nil {
					return err
				}
				e, err = evenB.BuildRange(ectx, lo, hi)
				if err != nil {
					return err
				}
			} else {
				o, e = odd.MSBRange(lo, hi), even.MSBRange(lo, hi)
			}

			s := &search{
				ctx: ectx,
				p:   p,
			}
			if !s.match(o, e, oks>>statetable.PrefixRounds,
				eks>>statetable.PrefixRounds, searchRounds) {
				return nil
			}
			if s.err != nil {
				return s.err
			}

			mtx.Lock()
			key, found = s.key, true
			mtx.Unlock()
			cancel()
			return nil
		})
	}
	err := eg.Wait()

	mtx.Lock()
	defer mtx.Unlock()
	if found {
		return key, true, nil
	}
	if err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// search is the recursive matching of one chunk.  It is owned by a single
// goroutine.
type search struct {
	ctx context.Context
	p   *Params

	key uint64
	err error
}

// match calls descend on every MSB bucket present in both sorted tables.
// It returns true when the search is over, either because a key was found
// or because the context is done.
func (s *search) match(o, e statetable.Table, oks, eks uint32, rem int) bool {
	return statetable.Intersect(o, e, func(ob, eb statetable.Table) bool {
		return s.descend(ob, eb, oks, eks, rem)
	})
}

// descend extends one bucket by up to four more keystream bits per half and
// matches the result again.  Once all bits are consumed the remaining pairs
// are combined into full states and checked.
func (s *search) descend(o, e statetable.Table, oks, eks uint32, rem int) bool {
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return true
	}
	if rem < 0 {
		return s.combine(o, e)
	}

	// buckets alias the parent tables and extending may append
	o, e = slices.Clone(o), slices.Clone(e)
	for i := 0; i < 4; i++ {
		rem--
		if rem < 0 {
			break
		}
		oks >>= 1
		eks >>= 1
		o = o.Extend(oks&1, statetable.Odd)
		if len(o) == 0 {
			return false
		}
		e = e.Extend(eks&1, statetable.Even)
		if len(e) == 0 {
			return false
		}
	}
	o.Sort()
	e.Sort()
	return s.match(o, e, oks, eks, rem)
}

// combine shifts the even halves by the bit shared with the odd halves and
// checks every resulting state.
func (s *search) combine(o, e statetable.Table) bool {
	for _, ev := range e {
		ev = ev<<1 ^ crypto1.EvenParity32(ev&crypto1.LFPolyEven)
		for _, ov := range o {
			c := crypto1.State{
				Odd:  ev ^ crypto1.EvenParity32(ov&crypto1.LFPolyOdd),
				Even: ov,
			}
			if key, ok := s.p.Check(c); ok {
				s.key = key
				return true
			}
		}
	}
	return false
}
