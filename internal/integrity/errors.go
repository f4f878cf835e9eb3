package integrity

import (
	"errors"
	"fmt"
)

// ErrMismatch is the sentinel all hash mismatch failures match via errors.Is.
var ErrMismatch = errors.New("hash mismatch")

// MismatchError is the fail-closed error returned when a fetched source tree
// or vendored dependency tree does not hash to the declared value.
type MismatchError struct {
	// Kind is "source" or "vendor".
	Kind string
	// Subject identifies what was hashed (package name or path).
	Subject string
	Want    Hash
	Got     Hash
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s hash mismatch for %s:\n  declared: %s\n  computed: %s",
		e.Kind, e.Subject, e.Want, e.Got)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// MissingHashError is returned when a manifest declares no hash for a gate
// that the requested operation must verify.
type MissingHashError struct {
	Kind    string
	Subject string
}

func (e *MissingHashError) Error() string {
	flag := "--print-hash"
	if e.Kind == "vendor" {
		flag = "--print-vendor-hash"
	}
	return fmt.Sprintf("manifest for %s declares no %s hash; run 'pinbuild fetch %s' to compute it",
		e.Subject, e.Kind, flag)
}

// Verify compares got against want and returns a MismatchError when they
// differ, or a MissingHashError when want is unset.
func Verify(kind, subject string, want, got Hash) error {
	if want.IsZero() {
		return &MissingHashError{Kind: kind, Subject: subject}
	}
	if !want.Equal(got) {
		return &MismatchError{Kind: kind, Subject: subject, Want: want, Got: got}
	}
	return nil
}
