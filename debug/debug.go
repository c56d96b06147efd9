// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package debug is a leveled logger with registered subsystems.  Every line
// is prefixed with a time stamp, the subsystem name and the level.  A nil
// *Debug discards everything.
package debug

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/companyzero/ttk"
)

var (
	ErrDuplicateSubsystem = errors.New("duplicate subsystem")
)

type Debug struct {
	sync.Mutex
	filename   string // empty means stderr
	format     string
	subsystems map[int]string
	debug      bool // debug enabled?
	trace      bool // trace enabled?

	stderr io.Writer
}

// Log records untrusted text, terminal escapes are stripped.
func (d *Debug) Log(id int, format string, args ...interface{}) {
	if d == nil {
		return
	}
	s := ttk.Unescape(fmt.Sprintf(format, args...))
	d.log(id, "[LOG] ", "%v", s)
}

func (d *Debug) Info(id int, format string, args ...interface{}) {
	d.log(id, "[INF] ", format, args...)
}

func (d *Debug) Warn(id int, format string, args ...interface{}) {
	d.log(id, "[WAR] ", format, args...)
}

func (d *Debug) Error(id int, format string, args ...interface{}) {
	d.log(id, "[ERR] ", format, args...)
}

func (d *Debug) Critical(id int, format string, args ...interface{}) {
	d.log(id, "[CRI] ", format, args...)
}

func (d *Debug) Dbg(id int, format string, args ...interface{}) {
	// let it race!
	if d == nil || !d.debug {
		return
	}

	d.log(id, "[DBG] ", format, args...)
}

func (d *Debug) T(id int, format string, args ...interface{}) {
	// let it race!
	if d == nil || !d.trace {
		return
	}

	d.log(id, "[TRC] ", format, args...)
}

// Tracing reports whether trace output is enabled.  Callers use it to skip
// building expensive dumps.
func (d *Debug) Tracing() bool {
	return d != nil && d.trace
}

func (d *Debug) log(id int, prefix string, format string, args ...interface{}) {
	if d == nil {
		return
	}

	d.Lock()
	defer d.Unlock()

	s, found := d.subsystems[id]
	if !found {
		s = "[UNK]"
	}

	t := time.Now().Format(d.format)
	line := fmt.Sprintf(t+" "+s+prefix+format+"\n", args...)

	if d.filename == "" {
		io.WriteString(d.stderr, line)
		return
	}

	f, err := os.OpenFile(d.filename, os.O_CREATE|os.O_RDWR|os.O_APPEND,
		0600)
	if err != nil {
		fmt.Fprintf(d.stderr, "log error: %v\n", err)
		return
	}
	defer f.Close()

	io.WriteString(f, line)
}

// New returns a logger appending to filename.  An empty filename logs to
// stderr.
func New(filename, format string) (*Debug, error) {
	if filename != "" {
		// make sure we can open file
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_RDWR|os.O_APPEND,
			0600)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	d := Debug{
		subsystems: make(map[int]string),
		format:     format,
		filename:   filename,
		stderr:     os.Stderr,
	}

	return &d, nil
}

func (d *Debug) Register(id int, name string) error {
	if d == nil {
		return nil
	}

	d.Lock()
	defer d.Unlock()

	_, found := d.subsystems[id]
	if found {
		return ErrDuplicateSubsystem
	}
	d.subsystems[id] = name
	return nil
}

func (d *Debug) EnableDebug() {
	d.Lock()
	defer d.Unlock()

	d.debug = true
}

func (d *Debug) EnableTrace() {
	d.Lock()
	defer d.Unlock()

	d.trace = true
}
