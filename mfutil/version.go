// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mfutil

import "fmt"

const (
	versionMajor = 0
	versionMinor = 3
	versionPatch = 1
)

// Version returns the semantic version of the mfkey tools.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", versionMajor, versionMinor,
		versionPatch)
}
