// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/companyzero/mfkey/mfutil"
	"github.com/companyzero/mfkey/recovery"
	"github.com/companyzero/mfkey/tools"
	"github.com/mitchellh/go-homedir"
	"github.com/vaughan0/go-ini"
)

// Settings is the collection of all mfkey settings.  This is separated out
// in order to be able to reuse in various tests.
type Settings struct {
	// default section
	Root       string // root directory for mfkey
	Nonces     string // nonce log
	SystemDict string // read only key dictionary
	UserDict   string // dictionary recovered keys are appended to
	Output     string // key list, stdout when empty

	// recovery section
	Workers      int           // records in flight
	ChunkWorkers int           // MSB chunks in flight per record
	Chunks       int           // MSB chunks per record
	LowMemory    bool          // rebuild tables per chunk
	Timeout      time.Duration // per record limit, 0 is none
	UseDict      bool          // try known keys before searching

	// log section
	LogFile    string // log filename, stderr when empty
	TimeFormat string // debug file time stamp format
	Debug      bool   // enable debug
	Trace      bool   // enable tracing
	Profiler   string // go profiler link
}

var (
	errIniNotFound = errors.New("not found")
)

// DefaultConfigFileContent is written by mfkey -export.
const DefaultConfigFileContent = `# mfkey settings

# root directory
root = ~/.mfkey

# nonce log captured by the reader
nonces = ~/.mfkey/.mfkey32.log

# key dictionaries, both in 12 hex digits per line format
systemdict = ~/.mfkey/mf_classic_dict.nfc
userdict = ~/.mfkey/mf_classic_dict_user.nfc

# recovered key list, empty writes to stdout
output =

[recovery]
# records searched concurrently, 0 uses all CPUs
workers = 0
# MSB chunks searched concurrently per record
chunkworkers = 1
# MSB chunks, must divide 256
chunks = 16
# rebuild the state tables for every chunk
lowmemory = no
# per record search limit, e.g. 10m; 0 disables
timeout = 0
# try dictionary keys before searching
usedict = yes

[log]
logfile = ~/.mfkey/mfkey.log
timeformat = 2006-01-02 15:04:05
debug = no
trace = no
profiler = localhost:6060
`

// New returns a default settings structure.
func New() *Settings {
	root := filepath.Join("~", mfutil.DefaultMFKeyDir)
	return &Settings{
		// default
		Root:       root,
		Nonces:     filepath.Join(root, mfutil.DefaultNonceLog),
		SystemDict: filepath.Join(root, tools.SystemDictFilename),
		UserDict:   filepath.Join(root, tools.UserDictFilename),
		Output:     "",

		// recovery
		Workers:      runtime.NumCPU(),
		ChunkWorkers: 1,
		Chunks:       recovery.DefaultChunks,
		LowMemory:    false,
		Timeout:      0,
		UseDict:      true,

		// log
		LogFile:    filepath.Join(root, mfutil.DefaultMFKeyLog),
		TimeFormat: "2006-01-02 15:04:05",
		Debug:      false,
		Trace:      false,
		Profiler:   "localhost:6060",
	}
}

// Load retrieves settings from an ini file.  A missing file is only an error
// when mustExist is set.  Additionally it expands all ~ to the current user
// home directory.
func (s *Settings) Load(filename string, mustExist bool) error {
	// parse file
	cfg, err := ini.LoadFile(filename)
	if err != nil {
		if mustExist || !os.IsNotExist(err) {
			return err
		}
		cfg = ini.File{}
	}

	for _, v := range []struct {
		p       *string
		section string
		key     string
	}{
		{&s.Root, "", "root"},
		{&s.Nonces, "", "nonces"},
		{&s.SystemDict, "", "systemdict"},
		{&s.UserDict, "", "userdict"},
		{&s.Output, "", "output"},
		{&s.LogFile, "log", "logfile"},
	} {
		x, ok := cfg.Get(v.section, v.key)
		if ok {
			*v.p = x
		}
		*v.p, err = homedir.Expand(*v.p)
		if err != nil {
			return err
		}
	}

	// recovery
	err = iniInt(cfg, &s.Workers, "recovery", "workers")
	if err != nil && err != errIniNotFound {
		return err
	}
	if s.Workers == 0 {
		s.Workers = runtime.NumCPU()
	}

	err = iniInt(cfg, &s.ChunkWorkers, "recovery", "chunkworkers")
	if err != nil && err != errIniNotFound {
		return err
	}
	if s.ChunkWorkers == 0 {
		s.ChunkWorkers = runtime.NumCPU()
	}

	err = iniInt(cfg, &s.Chunks, "recovery", "chunks")
	if err != nil && err != errIniNotFound {
		return err
	}
	if s.Chunks == 0 || 256%s.Chunks != 0 {
		return fmt.Errorf("[recovery]chunks must divide 256: %v",
			s.Chunks)
	}

	err = iniBool(cfg, &s.LowMemory, "recovery", "lowmemory")
	if err != nil && err != errIniNotFound {
		return err
	}

	timeout, ok := cfg.Get("recovery", "timeout")
	if ok {
		if timeout == "0" {
			s.Timeout = 0
		} else {
			s.Timeout, err = time.ParseDuration(timeout)
			if err != nil || s.Timeout < 0 {
				return fmt.Errorf("[recovery]timeout invalid: %v",
					timeout)
			}
		}
	}

	err = iniBool(cfg, &s.UseDict, "recovery", "usedict")
	if err != nil && err != errIniNotFound {
		return err
	}

	// logging and debug
	err = iniBool(cfg, &s.Debug, "log", "debug")
	if err != nil && err != errIniNotFound {
		return err
	}

	err = iniBool(cfg, &s.Trace, "log", "trace")
	if err != nil && err != errIniNotFound {
		return err
	}

	timeFormat, ok := cfg.Get("log", "timeformat")
	if ok {
		s.TimeFormat = timeFormat
	}

	profiler, ok := cfg.Get("log", "profiler")
	if ok {
		s.Profiler = profiler
	}

	return nil
}

func iniBool(cfg ini.File, p *bool, section, key string) error {

	v, ok := cfg.Get(section, key)
	if ok {
		switch strings.ToLower(v) {
		case "yes":
			*p = true
			return nil
		case "no":
			*p = false
			return nil
		default:
			return fmt.Errorf("[%v]%v must be yes or no",
				section, key)
		}
	}
	return errIniNotFound
}

func iniInt(cfg ini.File, p *int, section, key string) error {
	v, ok := cfg.Get(section, key)
	if !ok {
		return errIniNotFound
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return fmt.Errorf("[%v]%v must be a non negative integer",
			section, key)
	}
	*p = i
	return nil
}
