// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// mfkeyverify tests keys against every record of a nonce log without
// searching.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/companyzero/mfkey/keydict"
	"github.com/companyzero/mfkey/mfutil"
	"github.com/companyzero/mfkey/trace"
)

func _main() error {
	nonces := flag.String("n", "", "nonce log")
	dict := flag.String("d", "", "dictionary with additional keys")
	version := flag.Bool("version", false, "show version")
	flag.Parse()

	if *version {
		fmt.Fprintf(os.Stderr, "mfkeyverify %s (%s)\n", mfutil.Version(),
			runtime.Version())
		os.Exit(0)
	}
	if *nonces == "" {
		return fmt.Errorf("usage: mfkeyverify -n <nonce log> " +
			"[-d dictionary] [key ...]")
	}

	keys := keydict.New()
	for _, a := range flag.Args() {
		k, err := keydict.ParseKey(a)
		if err != nil {
			return err
		}
		keys.Add(k)
	}
	if *dict != "" {
		d, err := keydict.Load(*dict)
		if err != nil {
			return err
		}
		keys.Merge(d)
	}
	if keys.Len() == 0 {
		return fmt.Errorf("no keys to verify")
	}

	lines, err := trace.ReadFile(*nonces)
	if err != nil {
		return err
	}

	solved := 0
	for i, line := range lines {
		if trace.Skip(line) {
			continue
		}
		r, err := trace.ParseLine(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %v: %v\n", i+1, err)
			continue
		}

		p := r.Params()
		result := "no key"
		for _, k := range keys.Keys() {
			if p.Solves(k) {
				result = keydict.FormatKey(k)
				solved++
				break
			}
		}
		fmt.Printf("line %v sector %v key %c: %v\n", i+1, r.Sector,
			r.KeyType, result)
	}
	fmt.Fprintf(os.Stderr, "%v records solved\n", solved)

	return nil
}

func main() {
	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
