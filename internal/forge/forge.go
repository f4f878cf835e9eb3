// Package forge maps source-hosting coordinates (forge, owner, repo, rev) to
// downloadable archive URLs for the pinned revision.
package forge

import (
	"fmt"
	"regexp"
)

// Archive formats a forge can serve.
const (
	FormatTarGz = "tar.gz"
	FormatTarXz = "tar.xz"
)

// Ref pins one revision of a repository on a known forge.
type Ref struct {
	Forge string
	Owner string
	Repo  string
	Rev   string
}

// Known forges and their archive URL layouts.
var forges = map[string]struct {
	urlTemplate string
	format      string
}{
	"github":    {"https://github.com/%[1]s/%[2]s/archive/%[3]s.tar.gz", FormatTarGz},
	"gitlab":    {"https://gitlab.com/%[1]s/%[2]s/-/archive/%[3]s/%[2]s-%[3]s.tar.gz", FormatTarGz},
	"codeberg":  {"https://codeberg.org/%[1]s/%[2]s/archive/%[3]s.tar.gz", FormatTarGz},
	"sourcehut": {"https://git.sr.ht/~%[1]s/%[2]s/archive/%[3]s.tar.gz", FormatTarGz},
}

var (
	nameRe   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	commitRe = regexp.MustCompile(`^[0-9a-f]{40}$`)
	tagRe    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/+-]*$`)
)

// Known reports whether name is a supported forge.
func Known(name string) bool {
	_, ok := forges[name]
	return ok
}

// Names returns the supported forge names, for help text and validation
// messages. Order is not guaranteed.
func Names() []string {
	names := make([]string, 0, len(forges))
	for name := range forges {
		names = append(names, name)
	}
	return names
}

// Validate checks the coordinates without hitting the network.
func (r Ref) Validate() error {
	if !Known(r.Forge) {
		return fmt.Errorf("unknown forge %q (supported: github, gitlab, codeberg, sourcehut)", r.Forge)
	}
	if !nameRe.MatchString(r.Owner) {
		return fmt.Errorf("invalid owner %q", r.Owner)
	}
	if !nameRe.MatchString(r.Repo) {
		return fmt.Errorf("invalid repo %q", r.Repo)
	}
	if !ValidRev(r.Rev) {
		return fmt.Errorf("invalid rev %q: must be a tag or a 40-hex commit", r.Rev)
	}
	return nil
}

// ValidRev reports whether rev looks like a tag name or a full commit hash.
func ValidRev(rev string) bool {
	return commitRe.MatchString(rev) || tagRe.MatchString(rev)
}

// ArchiveURL returns the URL of the source archive for the pinned revision
// and the archive format it will be served in.
func (r Ref) ArchiveURL() (url, format string, err error) {
	if err := r.Validate(); err != nil {
		return "", "", err
	}
	f := forges[r.Forge]
	return fmt.Sprintf(f.urlTemplate, r.Owner, r.Repo, r.Rev), f.format, nil
}

// Slug returns "owner/repo" for display.
func (r Ref) Slug() string {
	return r.Owner + "/" + r.Repo
}
