// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package trace turns a nonce log into recovered keys.  Lines are parsed
// into records, every record is first tested against the keys already known
// and otherwise handed to the key search.
package trace

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/companyzero/mfkey/debug"
	"github.com/companyzero/mfkey/keydict"
	"github.com/companyzero/mfkey/recovery"
	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"
)

// LogID is the debug subsystem the processor logs under.
const LogID = 1

// Outcome is the result of processing one record.
type Outcome int

const (
	Recovered  Outcome = iota // key found by the search
	Dictionary                // key already known
	NotFound                  // search completed without a key
	TimedOut                  // search ran out of time
)

func (o Outcome) String() string {
	switch o {
	case Recovered:
		return "recovered"
	case Dictionary:
		return "dictionary"
	case NotFound:
		return "not found"
	case TimedOut:
		return "timed out"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the outcome of one record.
type Result struct {
	Line    int // 1 based line number
	Record  *Record
	Outcome Outcome
	Key     uint64 // valid for Recovered and Dictionary
}

// Stats summarizes a batch.
type Stats struct {
	Lines      int // lines read
	Records    int // lines that parsed
	Malformed  int // lines rejected by ParseLine
	Dictionary int // records solved by a known key
	Recovered  int // records solved by the search
	NotFound   int // records without a key
	TimedOut   int // records abandoned on timeout
	Keys       int // unique keys
}

// Processor runs the records of a nonce log concurrently.
type Processor struct {
	Recoverer *recovery.Recoverer
	Workers   int           // records in flight, NumCPU when zero
	Timeout   time.Duration // per record search limit, none when zero
	Known     []uint64      // keys tried before searching
	UseKnown  bool          // try Known and recovered keys first
	Debug     *debug.Debug  // optional
}

type job struct {
	line   int
	record *Record
}

// Process parses lines, solves every record and returns the unique keys in
// record order.  Malformed lines are logged and skipped.  The returned error
// is non-nil only when ctx is done before the batch completes.
func (p *Processor) Process(ctx context.Context, lines []string) (*KeySet, *Stats, []Result, error) {
	stats := &Stats{
		Lines: len(lines),
	}

	var jobs []job
	for i, line := range lines {
		if Skip(line) {
			continue
		}
		r, err := ParseLine(line)
		if err != nil {
			stats.Malformed++
			p.Debug.Warn(LogID, "line %v skipped", i+1)
			p.Debug.Log(LogID, "line %v: %v", i+1, err)
			continue
		}
		jobs = append(jobs, job{line: i + 1, record: r})
	}
	stats.Records = len(jobs)
	p.Debug.Dbg(LogID, "%v lines, %v records, %v malformed",
		stats.Lines, stats.Records, stats.Malformed)

	r := p.Recoverer
	if r == nil {
		r = &recovery.Recoverer{}
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// keys recovered so far are tried on later records
	found := NewKeySet()
	results := make([]Result, len(jobs))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range jobs {
		i := i
		eg.Go(func() error {
			res, err := p.solve(ectx, r, jobs[i], found)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, nil, err
	}

	keys := NewKeySet()
	for _, res := range results {
		switch res.Outcome {
		case Recovered:
			stats.Recovered++
			keys.Add(res.Key)
		case Dictionary:
			stats.Dictionary++
			keys.Add(res.Key)
		case NotFound:
			stats.NotFound++
		case TimedOut:
			stats.TimedOut++
		}
	}
	stats.Keys = keys.Len()

	return keys, stats, results, nil
}

func (p *Processor) solve(ctx context.Context, r *recovery.Recoverer, j job, found *KeySet) (Result, error) {
	res := Result{
		Line:   j.line,
		Record: j.record,
	}
	if p.Debug.Tracing() {
		p.Debug.T(LogID, "line %v: %v", j.line, spew.Sdump(j.record))
	}

	params := j.record.Params()
	if p.UseKnown {
		for _, candidates := range [][]uint64{p.Known, found.Keys()} {
			for _, k := range candidates {
				if params.Solves(k) {
					p.Debug.Dbg(LogID, "line %v: known key %v",
						j.line, keydict.FormatKey(k))
					res.Outcome = Dictionary
					res.Key = k
					return res, nil
				}
			}
		}
	}

	rctx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	key, ok, err := r.Recover(rctx, params.KS2(), params)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		p.Debug.Warn(LogID, "line %v: timed out after %v", j.line,
			p.Timeout)
		res.Outcome = TimedOut
		return res, nil
	default:
		return res, err
	}

	if !ok {
		p.Debug.Info(LogID, "line %v: sector %v key %c: no key (%v)",
			j.line, j.record.Sector, j.record.KeyType, time.Since(start))
		res.Outcome = NotFound
		return res, nil
	}

	found.Add(key)
	p.Debug.Info(LogID, "line %v: sector %v key %c: %v (%v)", j.line,
		j.record.Sector, j.record.KeyType, keydict.FormatKey(key),
		time.Since(start))
	res.Outcome = Recovered
	res.Key = key
	return res, nil
}
