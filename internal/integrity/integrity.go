// Package integrity implements the hash gates that make pinbuild builds
// reproducible: SRI-formatted sha256 hashes, a canonical directory tree hash,
// and the fail-closed mismatch errors the pipeline aborts with.
package integrity

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
)

// Hash is an SRI-style content hash, e.g. "sha256-47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=".
// The zero value means "no hash declared".
type Hash struct {
	algo string
	sum  []byte
}

// Parse parses an SRI hash string. Only sha256 is accepted.
func Parse(s string) (Hash, error) {
	algo, b64, ok := strings.Cut(s, "-")
	if !ok {
		return Hash{}, fmt.Errorf("invalid SRI hash %q: missing algorithm prefix", s)
	}
	if algo != "sha256" {
		return Hash{}, fmt.Errorf("unsupported hash algorithm %q (only sha256)", algo)
	}
	sum, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid SRI hash %q: %w", s, err)
	}
	if len(sum) != sha256.Size {
		return Hash{}, fmt.Errorf("invalid SRI hash %q: sha256 digest must be %d bytes, got %d", s, sha256.Size, len(sum))
	}
	return Hash{algo: algo, sum: sum}, nil
}

// FromSum wraps a raw sha256 digest.
func FromSum(sum [sha256.Size]byte) Hash {
	return Hash{algo: "sha256", sum: sum[:]}
}

// String returns the SRI form, or "" for the zero value.
func (h Hash) String() string {
	if h.IsZero() {
		return ""
	}
	return h.algo + "-" + base64.StdEncoding.EncodeToString(h.sum)
}

// IsZero reports whether no hash is set.
func (h Hash) IsZero() bool {
	return h.algo == ""
}

// Equal reports whether two hashes have the same algorithm and digest.
func (h Hash) Equal(o Hash) bool {
	return h.algo == o.algo && string(h.sum) == string(o.sum)
}

// FileHash computes the SRI hash of a single file's contents.
func FileHash(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return Hash{}, fmt.Errorf("cannot hash %s: %w", path, err)
	}
	var sum [sha256.Size]byte
	copy(sum[:], hasher.Sum(nil))
	return FromSum(sum), nil
}
