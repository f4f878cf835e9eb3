// Package install places built binaries into the pinbuild store, links them
// onto PATH, and generates shell completions by invoking the installed
// binary itself.
//
// Store layout:
//
//	<root>/store/<name>-<version>/bin/<binary>
//	<root>/store/<name>-<version>/share/completions/<binary>.<shell>
//	<root>/bin/<binary> -> ../store/<name>-<version>/bin/<binary>
package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/pinbuild/internal/manifest"
)

// Installer manages the pinbuild store under a root directory.
type Installer struct {
	Root string
}

// New creates an Installer rooted at root (typically ~/.pinbuild).
func New(root string) *Installer {
	return &Installer{Root: root}
}

// StoreDir returns the per-package store directory.
func (i *Installer) StoreDir(name, version string) string {
	return filepath.Join(i.Root, "store", name+"-"+version)
}

// BinDir returns the directory of PATH symlinks.
func (i *Installer) BinDir() string {
	return filepath.Join(i.Root, "bin")
}

// Result describes a completed install.
type Result struct {
	StorePath   string
	Binaries    []string // installed binary paths inside the store
	Links       []string // symlinks created in BinDir
	Completions []string // completion script paths
}

// Install moves the built binaries into the store, applying the manifest's
// binaryName rename, links them into BinDir, and generates the requested
// completion scripts. The store directory for this name-version is replaced
// wholesale so a rebuild never leaves stale files behind.
func (i *Installer) Install(m *manifest.Manifest, builtBinaries []string) (*Result, error) {
	if len(builtBinaries) == 0 {
		return nil, fmt.Errorf("nothing to install for %s", m.Name)
	}

	storeDir := i.StoreDir(m.Name, m.Version)
	if err := os.RemoveAll(storeDir); err != nil {
		return nil, fmt.Errorf("cannot clear store directory %s: %w", storeDir, err)
	}
	binDir := filepath.Join(storeDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", binDir, err)
	}

	res := &Result{StorePath: storeDir}
	for idx, built := range builtBinaries {
		name := filepath.Base(built)
		// A single-binary package installs under its canonical command name,
		// which may differ from the build-output name.
		if idx == 0 && len(builtBinaries) == 1 && m.Install.BinaryName != "" {
			name = m.Install.BinaryName
		}
		dest := filepath.Join(binDir, name)
		if err := copyExecutable(built, dest); err != nil {
			return nil, err
		}
		res.Binaries = append(res.Binaries, dest)
	}

	// Completions are generated from the installed binary, never the build
	// output: the step doubles as a smoke test that the binary runs from its
	// final location.
	if len(m.Install.Completions) > 0 {
		scripts, err := GenerateCompletions(res.Binaries[0], m.Install.Completions, filepath.Join(storeDir, "share", "completions"))
		if err != nil {
			return nil, err
		}
		res.Completions = scripts
	}

	links, err := i.link(res.Binaries)
	if err != nil {
		return nil, err
	}
	res.Links = links
	return res, nil
}

// link creates (or replaces) PATH symlinks in BinDir for each binary.
func (i *Installer) link(binaries []string) ([]string, error) {
	if err := os.MkdirAll(i.BinDir(), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create bin directory %s: %w", i.BinDir(), err)
	}
	var links []string
	for _, bin := range binaries {
		link := filepath.Join(i.BinDir(), filepath.Base(bin))
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot replace symlink %s: %w", link, err)
		}
		if err := os.Symlink(bin, link); err != nil {
			return nil, fmt.Errorf("cannot create symlink %s: %w", link, err)
		}
		links = append(links, link)
	}
	return links, nil
}

// Uninstall removes a package's store directory and any BinDir symlinks that
// point into it.
func (i *Installer) Uninstall(name, version string) error {
	storeDir := i.StoreDir(name, version)

	entries, err := os.ReadDir(i.BinDir())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot read bin directory: %w", err)
	}
	for _, entry := range entries {
		link := filepath.Join(i.BinDir(), entry.Name())
		target, err := os.Readlink(link)
		if err != nil {
			continue // not a symlink; leave foreign files alone
		}
		if strings.HasPrefix(target, storeDir+string(os.PathSeparator)) {
			if err := os.Remove(link); err != nil {
				return fmt.Errorf("cannot remove symlink %s: %w", link, err)
			}
		}
	}

	if err := os.RemoveAll(storeDir); err != nil {
		return fmt.Errorf("cannot remove store directory %s: %w", storeDir, err)
	}
	return nil
}

// copyExecutable copies src to dest with mode 0755.
func copyExecutable(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open built binary %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("cannot copy %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", dest, err)
	}
	return nil
}
