// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keydict reads and appends MIFARE Classic key dictionaries.  A
// dictionary is a text file with one key of 12 hex digits per line; lines
// starting with # are comments.
package keydict

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
)

const (
	// KeyLength is the number of hex digits of a key.
	KeyLength = 12

	// KeyMask covers the 48 significant bits of a key.
	KeyMask = 0xffffffffffff
)

var (
	ErrInvalidKey = errors.New("invalid key")
)

// ParseKey parses exactly KeyLength hex digits.
func ParseKey(s string) (uint64, error) {
	if len(s) != KeyLength {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	k, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return k, nil
}

// FormatKey renders key as KeyLength uppercase hex digits.
func FormatKey(key uint64) string {
	return fmt.Sprintf("%012X", key&KeyMask)
}

// Dict is an ordered set of keys.  It is not safe for concurrent writers.
type Dict struct {
	Invalid int // lines that did not hold a key

	keys []uint64
	seen map[uint64]struct{}
}

// New returns an empty dictionary.
func New() *Dict {
	return &Dict{
		seen: make(map[uint64]struct{}),
	}
}

// Load reads the dictionary filename.  A leading ~ is expanded to the home
// directory.  Lines that are neither comments nor keys are counted in
// Invalid and skipped.
func Load(filename string) (*Dict, error) {
	fn, err := homedir.Expand(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := New()
	if err := d.read(f); err != nil {
		return nil, fmt.Errorf("%v: %v", fn, err)
	}
	return d, nil
}

func (d *Dict) read(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			k, perr := ParseKey(line)
			if perr != nil {
				d.Invalid++
			} else {
				d.Add(k)
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

// Add inserts key and reports whether it was not present yet.
func (d *Dict) Add(key uint64) bool {
	key &= KeyMask
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	d.keys = append(d.keys, key)
	return true
}

// Merge adds all keys of o.
func (d *Dict) Merge(o *Dict) {
	for _, k := range o.keys {
		d.Add(k)
	}
}

// Contains reports whether key is in the dictionary.
func (d *Dict) Contains(key uint64) bool {
	_, ok := d.seen[key&KeyMask]
	return ok
}

// Len returns the number of keys.
func (d *Dict) Len() int {
	return len(d.keys)
}

// Keys returns the keys in the order they were added.
func (d *Dict) Keys() []uint64 {
	k := make([]uint64, len(d.keys))
	copy(k, d.keys)
	return k
}

// Append adds keys to the dictionary file filename, creating it when
// needed.  A last line without newline is terminated first.
func Append(filename string, keys []uint64) error {
	if len(keys) == 0 {
		return nil
	}
	fn, err := homedir.Expand(filename)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(fn, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if fi.Size() > 0 {
		var last [1]byte
		if _, err := f.ReadAt(last[:], fi.Size()-1); err != nil {
			return err
		}
		if last[0] != '\n' {
			w.WriteByte('\n')
		}
	}
	for _, k := range keys {
		w.WriteString(FormatKey(k) + "\n")
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// AppendNew appends the keys that are neither in filename nor in any of
// known to filename and returns how many were written.  A missing filename
// is created.
func AppendNew(filename string, keys []uint64, known ...*Dict) (int, error) {
	have, err := Load(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, err
		}
		have = New()
	}
	for _, d := range known {
		if d != nil {
			have.Merge(d)
		}
	}

	var fresh []uint64
	for _, k := range keys {
		if have.Add(k) {
			fresh = append(fresh, k&KeyMask)
		}
	}
	if err := Append(filename, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
