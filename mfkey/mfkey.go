// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// mfkey recovers MIFARE Classic sector keys from a nonce log of captured
// reader authentications.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/companyzero/mfkey/debug"
	"github.com/companyzero/mfkey/keydict"
	"github.com/companyzero/mfkey/mfutil"
	"github.com/companyzero/mfkey/recovery"
	"github.com/companyzero/mfkey/settings"
	"github.com/companyzero/mfkey/tools"
	"github.com/companyzero/mfkey/trace"
	"github.com/davecgh/go-spew/spew"
)

const (
	idApp = 0
)

type mfkey struct {
	*debug.Debug
	settings *settings.Settings
}

// dictionaries loads the system and user dictionaries.  Missing files are
// not an error.
func (m *mfkey) dictionaries() (*keydict.Dict, error) {
	known := keydict.New()
	for _, fn := range []string{m.settings.SystemDict, m.settings.UserDict} {
		if fn == "" {
			continue
		}
		d, err := keydict.Load(fn)
		if err != nil {
			if os.IsNotExist(err) {
				m.Info(idApp, "Dictionary not found: %v", fn)
				continue
			}
			return nil, err
		}
		if d.Invalid > 0 {
			m.Warn(idApp, "Dictionary %v: %v invalid lines", fn,
				d.Invalid)
		}
		m.Info(idApp, "Dictionary %v: %v keys", fn, d.Len())
		known.Merge(d)
	}
	return known, nil
}

// rememberKeys appends the keys missing from both the user dictionary file
// and known to the user dictionary.  known is consulted even when
// dictionary keys were not tried so reruns never duplicate entries.
func (m *mfkey) rememberKeys(keys []uint64, known *keydict.Dict) (int, error) {
	if m.settings.UserDict == "" {
		return 0, nil
	}
	n, err := keydict.AppendNew(m.settings.UserDict, keys, known)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.Info(idApp, "Added %v keys to %v", n, m.settings.UserDict)
	}
	return n, nil
}

func (m *mfkey) writeKeys(keys *trace.KeySet) error {
	var w io.Writer = os.Stdout
	if m.settings.Output != "" {
		f, err := os.OpenFile(m.settings.Output,
			os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := keys.WriteTo(w)
	return err
}

func _main() error {
	m := &mfkey{}

	// flags and settings
	var err error
	m.settings, err = ObtainSettings()
	if err != nil {
		return err
	}

	// create paths
	err = os.MkdirAll(m.settings.Root, 0700)
	if err != nil {
		return err
	}
	if m.settings.LogFile != "" {
		err = os.MkdirAll(filepath.Dir(m.settings.LogFile), 0700)
		if err != nil {
			return err
		}
	}

	// handle logging
	m.Debug, err = debug.New(m.settings.LogFile, m.settings.TimeFormat)
	if err != nil {
		return err
	}
	m.Register(idApp, "[APP]")
	m.Register(trace.LogID, "[BAT]")

	m.Info(idApp, "Version: %v", mfutil.Version())
	m.Info(idApp, "Start of day")
	m.Info(idApp, "Settings %v", spew.Sdump(m.settings))
	defer m.Info(idApp, "End of times")

	// debugging
	if m.settings.Debug {
		m.Info(idApp, "Debug enabled")
		m.EnableDebug()
		if m.settings.Profiler != "" {
			m.Info(idApp, "Profiler enabled on http://%v/debug/pprof",
				m.settings.Profiler)
			go http.ListenAndServe(m.settings.Profiler, nil)
		}

		if m.settings.Trace {
			m.Info(idApp, "Trace enabled")
			m.EnableTrace()
		}
	}

	// termination signals abort the batch
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigs:
			m.Warn(idApp, "Signal %v, aborting", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	// nonces
	lines, err := trace.ReadFile(m.settings.Nonces)
	if err != nil {
		return err
	}
	fp, err := tools.FileFingerprint(m.settings.Nonces)
	if err != nil {
		return err
	}
	m.Info(idApp, "Nonce log %v: %v lines, sha256 %v", m.settings.Nonces,
		len(lines), fp)

	// dictionaries are always loaded to filter the user dictionary update
	known, err := m.dictionaries()
	if err != nil {
		return err
	}
	var candidates []uint64
	if m.settings.UseDict {
		candidates = known.Keys()
	}

	r, err := recovery.New(m.settings.Chunks, m.settings.ChunkWorkers,
		m.settings.LowMemory)
	if err != nil {
		return err
	}
	p := &trace.Processor{
		Recoverer: r,
		Workers:   m.settings.Workers,
		Timeout:   m.settings.Timeout,
		Known:     candidates,
		UseKnown:  m.settings.UseDict,
		Debug:     m.Debug,
	}
	keys, stats, _, err := p.Process(ctx, lines)
	if err != nil {
		return err
	}

	err = m.writeKeys(keys)
	if err != nil {
		return err
	}

	_, err = m.rememberKeys(keys.Keys(), known)
	if err != nil {
		return err
	}

	m.Info(idApp, "Summary %v", spew.Sdump(stats))
	fmt.Fprintf(os.Stderr, "%v unique keys (%v recovered, %v known, "+
		"%v not found, %v timed out, %v malformed lines)\n", stats.Keys,
		stats.Recovered, stats.Dictionary, stats.NotFound,
		stats.TimedOut, stats.Malformed)

	return nil
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
