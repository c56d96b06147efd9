// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/companyzero/mfkey/keydict"
	"github.com/companyzero/mfkey/settings"
	"github.com/davecgh/go-spew/spew"
)

func parseOptions(t *testing.T, defaultConfFile string,
	args ...string) (*settings.Settings, error) {

	t.Helper()
	fs := flag.NewFlagSet("mfkey", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := newOptions(fs, defaultConfFile)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return o.settings(defaultConfFile, fs.Args())
}

func TestOptions(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.conf")

	// missing default file means defaults
	s, err := parseOptions(t, missing)
	if err != nil {
		t.Fatal(err)
	}
	if !s.UseDict || s.Output != "" {
		t.Fatalf("unexpected defaults %v", spew.Sdump(s))
	}

	// an explicit config file must exist
	if _, err := parseOptions(t, missing, "-cfg",
		filepath.Join(dir, "other.conf")); err == nil {
		t.Fatalf("missing -cfg file accepted")
	}

	cfg := filepath.Join(dir, "mfkey.conf")
	err = os.WriteFile(cfg, []byte("nonces = /tmp/a.log\n"+
		"[recovery]\nworkers = 2\nusedict = yes\n"), 0600)
	if err != nil {
		t.Fatal(err)
	}
	s, err = parseOptions(t, missing, "-cfg", cfg, "-o", "/tmp/keys.txt",
		"-nodict", "-t", "5")
	if err != nil {
		t.Fatal(err)
	}
	if s.Nonces != "/tmp/a.log" || s.Output != "/tmp/keys.txt" ||
		s.UseDict || s.Workers != 5 {
		t.Fatalf("unexpected overrides %v", spew.Sdump(s))
	}

	// -n overrides the file, a positional argument overrides -n
	s, err = parseOptions(t, missing, "-cfg", cfg, "-n", "/tmp/b.log")
	if err != nil {
		t.Fatal(err)
	}
	if s.Nonces != "/tmp/b.log" || s.Workers != 2 {
		t.Fatalf("unexpected overrides %v", spew.Sdump(s))
	}
	s, err = parseOptions(t, missing, "-n", "/tmp/b.log", "/tmp/c.log")
	if err != nil {
		t.Fatal(err)
	}
	if s.Nonces != "/tmp/c.log" {
		t.Fatalf("nonces %v", s.Nonces)
	}

	if _, err := parseOptions(t, missing, "a.log", "b.log"); err == nil {
		t.Fatalf("too many arguments accepted")
	}
}

func TestDictionaries(t *testing.T) {
	dir := t.TempDir()
	system := filepath.Join(dir, "system.nfc")
	err := os.WriteFile(system, []byte("FFFFFFFFFFFF\nbogus\n"), 0600)
	if err != nil {
		t.Fatal(err)
	}

	m := &mfkey{settings: settings.New()}
	m.settings.SystemDict = system
	m.settings.UserDict = filepath.Join(dir, "missing.nfc")
	known, err := m.dictionaries()
	if err != nil {
		t.Fatal(err)
	}
	if known.Len() != 1 || !known.Contains(0xffffffffffff) {
		t.Fatalf("unexpected keys %x", known.Keys())
	}
}

func TestRememberKeys(t *testing.T) {
	dir := t.TempDir()
	system := filepath.Join(dir, "system.nfc")
	user := filepath.Join(dir, "user.nfc")
	if err := os.WriteFile(system, []byte("FFFFFFFFFFFF\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(user, []byte("A0A1A2A3A4A5\n"), 0600); err != nil {
		t.Fatal(err)
	}

	m := &mfkey{settings: settings.New()}
	m.settings.SystemDict = system
	m.settings.UserDict = user
	m.settings.UseDict = false

	recovered := []uint64{0xffffffffffff, 0xa0a1a2a3a4a5, 0x4d3a99c351dd}
	for run, want := range []int{1, 0} {
		known, err := m.dictionaries()
		if err != nil {
			t.Fatal(err)
		}
		n, err := m.rememberKeys(recovered, known)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Fatalf("run %v: appended %v want %v", run, n, want)
		}
	}

	d, err := keydict.Load(user)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{0xa0a1a2a3a4a5, 0x4d3a99c351dd}
	if spew.Sdump(d.Keys()) != spew.Sdump(want) {
		t.Fatalf("got %x want %x", d.Keys(), want)
	}

	// no user dictionary configured
	m.settings.UserDict = ""
	n, err := m.rememberKeys(recovered, keydict.New())
	if err != nil || n != 0 {
		t.Fatalf("got %v %v", n, err)
	}
}
