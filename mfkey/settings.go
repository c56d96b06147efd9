// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/companyzero/mfkey/mfutil"
	"github.com/companyzero/mfkey/settings"
	"github.com/mitchellh/go-homedir"
)

// options are the command line flags.
type options struct {
	filename *string
	export   *string
	version  *bool
	nonces   *string
	output   *string
	noDict   *bool
	workers  *int
}

func newOptions(fs *flag.FlagSet, defaultConfFile string) *options {
	return &options{
		filename: fs.String("cfg", defaultConfFile, "config file"),
		export:   fs.String("export", "", "export default config file"),
		version:  fs.Bool("version", false, "show version"),
		nonces:   fs.String("n", "", "nonce log, overrides config"),
		output: fs.String("o", "", "key output file, overrides "+
			"config"),
		noDict: fs.Bool("nodict", false, "do not try dictionary keys"),
		workers: fs.Int("t", 0, "records searched concurrently, "+
			"overrides config"),
	}
}

// settings loads the config file and applies the command line overrides.
// args are the positional arguments left after parsing.
func (o *options) settings(defaultConfFile string,
	args []string) (*settings.Settings, error) {

	s := settings.New()

	// load file, the default one is optional
	err := s.Load(*o.filename, *o.filename != defaultConfFile)
	if err != nil {
		return nil, err
	}

	// command line overrides
	if *o.nonces != "" {
		s.Nonces, err = homedir.Expand(*o.nonces)
		if err != nil {
			return nil, err
		}
	}
	if *o.output != "" {
		s.Output, err = homedir.Expand(*o.output)
		if err != nil {
			return nil, err
		}
	}
	if *o.noDict {
		s.UseDict = false
	}
	if *o.workers > 0 {
		s.Workers = *o.workers
	}

	// a nonce log given as the only argument
	switch len(args) {
	case 0:
	case 1:
		s.Nonces, err = filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("too many arguments")
	}

	return s, nil
}

func ObtainSettings() (*settings.Settings, error) {
	// config file
	defaultConfFile, err := mfutil.DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	o := newOptions(flag.CommandLine, defaultConfFile)
	flag.Parse()

	if *o.version {
		fmt.Fprintf(os.Stderr, "mfkey %s (%s)\n", mfutil.Version(),
			runtime.Version())
		os.Exit(0)
	}

	if *o.export != "" {
		fmt.Printf("exporting config file to: %v\n", *o.export)
		err = os.WriteFile(*o.export,
			[]byte(settings.DefaultConfigFileContent), 0600)
		if err != nil {
			return nil, err
		}
		os.Exit(0)
	}

	return o.settings(defaultConfFile, flag.Args())
}
