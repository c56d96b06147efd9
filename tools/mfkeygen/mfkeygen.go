// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// mfkeygen writes nonce log lines of simulated authentications.  It is used
// to exercise mfkey without a reader.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/companyzero/mfkey/crypto1"
	"github.com/companyzero/mfkey/keydict"
	"github.com/companyzero/mfkey/mfutil"
	"github.com/companyzero/mfkey/tools"
	"github.com/companyzero/mfkey/trace"
)

func _main() error {
	keyHex := flag.String("key", "", "key (12 hex digits), random when empty")
	uid := flag.Uint("uid", 0x2a5e4c1b, "card uid")
	count := flag.Int("n", 1, "number of records")
	sector := flag.Int("sector", 0, "first sector")
	keyType := flag.String("type", "A", "key type, A or B")
	version := flag.Bool("version", false, "show version")
	flag.Parse()

	if *version {
		fmt.Fprintf(os.Stderr, "mfkeygen %s (%s)\n", mfutil.Version(),
			runtime.Version())
		os.Exit(0)
	}

	var (
		key uint64
		err error
	)
	if *keyHex == "" {
		key, err = tools.RandomKey()
	} else {
		key, err = keydict.ParseKey(*keyHex)
	}
	if err != nil {
		return err
	}
	if *keyType != "A" && *keyType != "B" {
		return fmt.Errorf("invalid key type: %v", *keyType)
	}
	if *uid > 0xffffffff {
		return fmt.Errorf("uid exceeds 32 bits")
	}

	random := func() uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = tools.RandomUint32()
		return v
	}
	for i := 0; i < *count; i++ {
		// both tag nonces come from the same generator run
		nt0 := crypto1.PRNGSuccessor(random(), 32)
		nt1 := crypto1.PRNGSuccessor(nt0, 64+random()%1024)
		nr0, nr1 := random(), random()
		if err != nil {
			return err
		}
		r := trace.Simulate(*sector+i, (*keyType)[0], key, uint32(*uid),
			nt0, nr0, nt1, nr1)
		fmt.Println(r)
	}
	fmt.Fprintf(os.Stderr, "key %v\n", keydict.FormatKey(key))

	return nil
}

func main() {
	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
