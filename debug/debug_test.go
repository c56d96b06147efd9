// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "mfkey.log")
	d, err := New(fn, "15:04:05")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Register(0, "[APP]"); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(0, "[XXX]"); err != ErrDuplicateSubsystem {
		t.Fatalf("got %v", err)
	}

	d.Info(0, "start %v", 1)
	d.Dbg(0, "hidden")
	d.T(0, "hidden")
	d.EnableDebug()
	d.Dbg(0, "shown")
	d.Warn(7, "unknown subsystem")
	d.Log(0, "raw \x1b[31mred\x1b[0m %v", "100%")

	b, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected log:\n%s", b)
	}
	for i, want := range []string{
		"[APP][INF] start 1",
		"[APP][DBG] shown",
		"[UNK][WAR] unknown subsystem",
	} {
		if !strings.HasSuffix(lines[i], want) {
			t.Fatalf("line %v: %q", i, lines[i])
		}
	}
	if !strings.Contains(lines[3], "[APP][LOG] raw") ||
		!strings.HasSuffix(lines[3], "100%") {
		t.Fatalf("argument mangled: %q", lines[3])
	}
}

func TestStderr(t *testing.T) {
	d, err := New("", "")
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	d.stderr = &b
	d.Register(1, "[BAT]")
	d.EnableTrace()
	if !d.Tracing() {
		t.Fatalf("trace not enabled")
	}
	d.T(1, "record %v", 3)
	if !strings.Contains(b.String(), "[BAT][TRC] record 3") {
		t.Fatalf("got %q", b.String())
	}
}

func TestNil(t *testing.T) {
	var d *Debug
	d.Info(0, "nothing")
	d.Log(0, "nothing")
	d.Dbg(0, "nothing")
	d.T(0, "nothing")
	if d.Tracing() {
		t.Fatalf("nil logger traces")
	}
	if err := d.Register(0, "[APP]"); err != nil {
		t.Fatal(err)
	}
}
