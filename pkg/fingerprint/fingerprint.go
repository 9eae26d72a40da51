// Package fingerprint identifies file contents.
//
// A [Fingerprint] combines an xxh3-128 content hash with the file size and
// modification time. Staleness is decided on hash and size only; the
// modification time is carried so cache keys change when a file is touched
// and so reports can show it.
package fingerprint

import (
	"fmt"
	"os"
	"time"

	"github.com/zeebo/xxh3"
)

// Fingerprint describes one version of a file's content.
type Fingerprint struct {
	Hash    string    `json:"hash" yaml:"hash"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Sum returns the hex xxh3-128 hash of data.
func Sum(data []byte) string {
	h := xxh3.Hash128(data)
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

// Of fingerprints data read from a file with the given modification time.
func Of(data []byte, modTime time.Time) Fingerprint {
	return Fingerprint{Hash: Sum(data), Size: int64(len(data)), ModTime: modTime.UTC()}
}

// File reads path and returns its content and fingerprint.
func File(path string) ([]byte, Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Fingerprint{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, Fingerprint{}, err
	}
	return data, Of(data, info.ModTime()), nil
}

// SameContent reports whether two fingerprints describe the same bytes.
func (f Fingerprint) SameContent(o Fingerprint) bool {
	return f.Hash == o.Hash && f.Size == o.Size
}

// IsZero reports whether f is unset.
func (f Fingerprint) IsZero() bool { return f.Hash == "" }

// String renders the fingerprint as used in cache keys.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%s:%d:%d", f.Hash, f.Size, f.ModTime.UnixNano())
}
