// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/companyzero/mfkey/crypto1"
	"github.com/companyzero/mfkey/recovery"
)

const (
	// RecordPrefix starts every authentication pair line of a nonce log.
	RecordPrefix = "Sec"

	recordTokens = 18
)

var (
	ErrMalformedLine = errors.New("malformed line")

	// labels expected in front of every hex token
	labels = [...]string{"cuid", "nt0", "nr0", "ar0", "nt1", "nr1", "ar1"}
)

// Record is one captured pair of authentications to the same sector.
type Record struct {
	Sector  int
	KeyType byte // 'A' or 'B'

	UID    uint32
	NT0    uint32
	NR0Enc uint32
	AR0Enc uint32
	NT1    uint32
	NR1Enc uint32
	AR1Enc uint32
}

// Skip reports whether line carries no record and should be ignored without
// complaint.
func Skip(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "#")
}

// ParseLine parses a nonce log line of the form
//
//	Sec 2 key A cuid 2a5e4c1b nt0 ... nr0 ... ar0 ... nt1 ... nr1 ... ar1 ...
//
// Tokens past the last hex value are ignored.
func ParseLine(line string) (*Record, error) {
	t := strings.Fields(line)
	if len(t) < recordTokens {
		return nil, fmt.Errorf("%w: %v tokens", ErrMalformedLine, len(t))
	}
	if t[0] != RecordPrefix || t[2] != "key" {
		return nil, fmt.Errorf("%w: not a record", ErrMalformedLine)
	}

	sector, err := strconv.Atoi(t[1])
	if err != nil || sector < 0 {
		return nil, fmt.Errorf("%w: sector %q", ErrMalformedLine, t[1])
	}
	kt := strings.ToUpper(t[3])
	if kt != "A" && kt != "B" {
		return nil, fmt.Errorf("%w: key type %q", ErrMalformedLine, t[3])
	}

	var v [len(labels)]uint32
	for i, label := range labels {
		if t[4+2*i] != label {
			return nil, fmt.Errorf("%w: expected %v got %q",
				ErrMalformedLine, label, t[4+2*i])
		}
		x, err := strconv.ParseUint(t[5+2*i], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v %q", ErrMalformedLine,
				label, t[5+2*i])
		}
		v[i] = uint32(x)
	}

	return &Record{
		Sector:  sector,
		KeyType: kt[0],
		UID:     v[0],
		NT0:     v[1],
		NR0Enc:  v[2],
		AR0Enc:  v[3],
		NT1:     v[4],
		NR1Enc:  v[5],
		AR1Enc:  v[6],
	}, nil
}

// String renders r as a nonce log line.
func (r *Record) String() string {
	return fmt.Sprintf("%v %v key %c cuid %08x nt0 %08x nr0 %08x "+
		"ar0 %08x nt1 %08x nr1 %08x ar1 %08x", RecordPrefix, r.Sector,
		r.KeyType, r.UID, r.NT0, r.NR0Enc, r.AR0Enc, r.NT1, r.NR1Enc,
		r.AR1Enc)
}

// Params returns the verification values of r.
func (r *Record) Params() *recovery.Params {
	return recovery.NewParams(r.UID, r.NT0, r.NR0Enc, r.AR0Enc, r.NT1,
		r.NR1Enc, r.AR1Enc)
}

// Simulate returns the record a reader using key produces when it
// authenticates twice to a tag, answering tag nonce nt0 with reader nonce
// nr0 and nt1 with nr1.
func Simulate(sector int, keyType byte, key uint64, uid, nt0, nr0, nt1,
	nr1 uint32) *Record {

	auth := func(nt, nr uint32) (uint32, uint32) {
		s := crypto1.NewState(key)
		s.CryptWord(uid^nt, false)
		nrEnc := nr ^ s.CryptWord(nr, false)
		arEnc := crypto1.PRNGSuccessor(nt, 64) ^ s.CryptWord(0, false)
		return nrEnc, arEnc
	}

	r := &Record{
		Sector:  sector,
		KeyType: keyType,
		UID:     uid,
		NT0:     nt0,
		NT1:     nt1,
	}
	r.NR0Enc, r.AR0Enc = auth(nt0, nr0)
	r.NR1Enc, r.AR1Enc = auth(nt1, nr1)
	return r
}

// ReadFile returns the lines of a nonce log.  Lines have no length limit;
// an overlong line is returned as is and rejected later by ParseLine.
func ReadFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines, err := readLines(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%v: %v", filename, err)
	}
	return lines, nil
}

func readLines(r *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
