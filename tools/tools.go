// Copyright (c) 2016 Company 0, LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tools

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/marcopeereboom/goutil"
)

const (
	SystemDictFilename = "mf_classic_dict.nfc"
	UserDictFilename   = "mf_classic_dict_user.nfc"
)

// randomUint32 returns a cryptographically random uint32 value.  This
// unexported version takes a reader primarily to ensure the error paths
// can be properly tested by passing a fake reader in the tests.
func randomUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// RandomUint32 returns a cryptographically random uint32 value.
func RandomUint32() (uint32, error) {
	return randomUint32(rand.Reader)
}

// RandomKey returns a cryptographically random 48 bit key.
func RandomKey() (uint64, error) {
	hi, err := RandomUint32()
	if err != nil {
		return 0, err
	}
	lo, err := RandomUint32()
	if err != nil {
		return 0, err
	}
	return uint64(hi&0xffff)<<32 | uint64(lo), nil
}

func Fingerprint(blob []byte) string {
	d := sha256.New()
	d.Write(blob)
	digest := d.Sum(nil)
	return hex.EncodeToString(digest[:])
}

// FileFingerprint returns the hex encoded SHA256 digest of a file, used to
// tie a log entry to the exact nonce log it was produced from.
func FileFingerprint(filename string) (string, error) {
	fd, err := goutil.FileSHA256(filename)
	if err != nil {
		return "", fmt.Errorf("could not digest %v: %v", filename, err)
	}
	return hex.EncodeToString(fd[:]), nil
}
