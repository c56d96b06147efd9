// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mfutil

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	DefaultMFKeyDir  = ".mfkey"
	DefaultMFKeyConf = "mfkey.conf"
	DefaultMFKeyLog  = "mfkey.log"
	DefaultNonceLog  = ".mfkey32.log"
)

func DefaultRootPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("homedir.Dir: %v", err)
	}
	return filepath.Join(home, DefaultMFKeyDir), nil
}

func DefaultConfigPath() (string, error) {
	root, err := DefaultRootPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, DefaultMFKeyConf), nil
}
