// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package trace

import (
	"bufio"
	"io"
	"sync"

	"github.com/companyzero/mfkey/keydict"
)

// KeySet collects unique keys in insertion order.  It is safe for
// concurrent use.
type KeySet struct {
	sync.Mutex
	keys []uint64
	seen map[uint64]struct{}
}

func NewKeySet() *KeySet {
	return &KeySet{
		seen: make(map[uint64]struct{}),
	}
}

// Add inserts key and reports whether it was new.
func (k *KeySet) Add(key uint64) bool {
	k.Lock()
	defer k.Unlock()

	if _, ok := k.seen[key]; ok {
		return false
	}
	k.seen[key] = struct{}{}
	k.keys = append(k.keys, key)
	return true
}

func (k *KeySet) Contains(key uint64) bool {
	k.Lock()
	defer k.Unlock()

	_, ok := k.seen[key]
	return ok
}

func (k *KeySet) Len() int {
	k.Lock()
	defer k.Unlock()

	return len(k.keys)
}

// Keys returns a copy of the keys in insertion order.
func (k *KeySet) Keys() []uint64 {
	k.Lock()
	defer k.Unlock()

	keys := make([]uint64, len(k.keys))
	copy(keys, k.keys)
	return keys
}

// WriteTo writes one key per line.
func (k *KeySet) WriteTo(w io.Writer) (int64, error) {
	var n int64
	bw := bufio.NewWriter(w)
	for _, key := range k.Keys() {
		c, err := bw.WriteString(keydict.FormatKey(key) + "\n")
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
