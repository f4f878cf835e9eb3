// Package manifest defines the declarative package record pinbuild consumes:
// what to fetch, the hashes that gate the build, how to compile it, and what
// to install.
package manifest

import (
	"fmt"
	"path"
	"strings"

	"github.com/blackwell-systems/pinbuild/internal/forge"
	"github.com/blackwell-systems/pinbuild/internal/integrity"
)

// Manifest is one package record, authored as YAML.
type Manifest struct {
	Name       string  `yaml:"name"`
	Version    string  `yaml:"version"`
	Source     Source  `yaml:"source"`
	VendorHash string  `yaml:"vendorHash,omitempty"`
	Build      Build   `yaml:"build,omitempty"`
	Install    Install `yaml:"install,omitempty"`
	Meta       Meta    `yaml:"meta,omitempty"`

	// Path is the manifest file this record was loaded from. Not part of
	// the YAML document.
	Path string `yaml:"-"`
}

// Source pins the upstream tree.
type Source struct {
	Forge string `yaml:"forge"`
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Rev   string `yaml:"rev"`
	Hash  string `yaml:"hash,omitempty"`
}

// Build holds the compile directives.
type Build struct {
	SubPackages []string `yaml:"subPackages,omitempty"`
	Ldflags     []string `yaml:"ldflags,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	VersionVar  string   `yaml:"versionVar,omitempty"`
	CGO         bool     `yaml:"cgo,omitempty"`
}

// Install holds the post-build install directives.
type Install struct {
	BinaryName  string   `yaml:"binaryName,omitempty"`
	Completions []string `yaml:"completions,omitempty"`
}

// Meta is human-readable package metadata. It never influences the build.
type Meta struct {
	Description string   `yaml:"description,omitempty"`
	Homepage    string   `yaml:"homepage,omitempty"`
	License     string   `yaml:"license,omitempty"`
	Maintainers []string `yaml:"maintainers,omitempty"`
}

// validShells are the completion families pinbuild can generate.
var validShells = map[string]bool{"bash": true, "zsh": true, "fish": true}

// ApplyDefaults fills the fields the author may omit.
func (m *Manifest) ApplyDefaults() {
	if len(m.Build.SubPackages) == 0 {
		m.Build.SubPackages = []string{"."}
	}
	if len(m.Build.Ldflags) == 0 {
		m.Build.Ldflags = []string{"-s", "-w"}
	}
	if m.Build.VersionVar == "" {
		m.Build.VersionVar = "main.version"
	}
	if m.Install.BinaryName == "" && len(m.Build.SubPackages) == 1 {
		m.Install.BinaryName = m.defaultBinaryName(m.Build.SubPackages[0])
	}
}

// defaultBinaryName derives the installed name for a subpackage: the base of
// its import path, or the package name when building the module root.
func (m *Manifest) defaultBinaryName(subPkg string) string {
	base := path.Base(path.Clean(subPkg))
	if base == "." || base == "/" {
		return m.Name
	}
	return base
}

// Ref returns the forge coordinates for the pinned source.
func (m *Manifest) Ref() forge.Ref {
	return forge.Ref{Forge: m.Source.Forge, Owner: m.Source.Owner, Repo: m.Source.Repo, Rev: m.Source.Rev}
}

// SourceHash returns the declared source tree hash, or the zero Hash when the
// manifest does not declare one yet.
func (m *Manifest) SourceHash() (integrity.Hash, error) {
	if m.Source.Hash == "" {
		return integrity.Hash{}, nil
	}
	return integrity.Parse(m.Source.Hash)
}

// DepsHash returns the declared vendor (dependency set) hash, or the zero
// Hash when the manifest does not declare one yet.
func (m *Manifest) DepsHash() (integrity.Hash, error) {
	if m.VendorHash == "" {
		return integrity.Hash{}, nil
	}
	return integrity.Parse(m.VendorHash)
}

// Validate performs the semantic checks the JSON schema cannot express.
// The manifest must have defaults applied first.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest has no name")
	}
	if m.Version == "" {
		return fmt.Errorf("%s: manifest has no version", m.Name)
	}
	if err := m.Ref().Validate(); err != nil {
		return fmt.Errorf("%s: source: %w", m.Name, err)
	}
	if _, err := m.SourceHash(); err != nil {
		return fmt.Errorf("%s: source.hash: %w", m.Name, err)
	}
	if _, err := m.DepsHash(); err != nil {
		return fmt.Errorf("%s: vendorHash: %w", m.Name, err)
	}
	for _, sub := range m.Build.SubPackages {
		if path.IsAbs(sub) || strings.HasPrefix(path.Clean(sub), "..") {
			return fmt.Errorf("%s: subPackage %q must be a relative path inside the source tree", m.Name, sub)
		}
	}
	if len(m.Build.SubPackages) > 1 && m.Install.BinaryName != "" {
		return fmt.Errorf("%s: install.binaryName requires exactly one subPackage", m.Name)
	}
	if strings.ContainsAny(m.Install.BinaryName, "/\\") {
		return fmt.Errorf("%s: install.binaryName %q must not contain path separators", m.Name, m.Install.BinaryName)
	}
	for _, sh := range m.Install.Completions {
		if !validShells[sh] {
			return fmt.Errorf("%s: unsupported completion shell %q (bash, zsh, fish)", m.Name, sh)
		}
	}
	if len(m.Install.Completions) > 0 && len(m.Build.SubPackages) > 1 {
		return fmt.Errorf("%s: completion generation requires exactly one subPackage", m.Name)
	}
	if !strings.Contains(m.Build.VersionVar, ".") {
		return fmt.Errorf("%s: build.versionVar %q must be a package-qualified variable (e.g. main.version)", m.Name, m.Build.VersionVar)
	}
	return nil
}
