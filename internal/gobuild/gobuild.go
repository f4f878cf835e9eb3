// Package gobuild wraps the Go toolchain for pinbuild: it vendors a pinned
// source tree's dependencies, verifies them against the manifest's vendor
// hash, and compiles the requested subpackages with version-injecting linker
// flags. After vendoring is verified, every toolchain invocation runs with
// the network disabled so hash-checked builds cannot drift.
package gobuild

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/pinbuild/internal/integrity"
	"github.com/blackwell-systems/pinbuild/internal/manifest"
)

// Builder runs the Go toolchain against fetched source trees.
type Builder struct {
	// GoBin is the go tool to invoke. Defaults to "go" from PATH.
	GoBin string
	// ModCacheDir is an isolated GOMODCACHE so host module state never
	// leaks into hash-verified builds.
	ModCacheDir string
}

// New creates a Builder whose module cache lives under cacheDir.
func New(cacheDir string) *Builder {
	return &Builder{
		GoBin:       "go",
		ModCacheDir: filepath.Join(cacheDir, "gomodcache"),
	}
}

// Vendor materializes the module's dependency set into srcDir/vendor via
// `go mod vendor`. This is the only network-touching toolchain step.
func (b *Builder) Vendor(ctx context.Context, srcDir string) error {
	if _, err := os.Stat(filepath.Join(srcDir, "go.mod")); err != nil {
		return fmt.Errorf("source tree has no go.mod: %w", err)
	}
	if err := os.MkdirAll(b.ModCacheDir, 0o755); err != nil {
		return fmt.Errorf("cannot create module cache %s: %w", b.ModCacheDir, err)
	}

	cmd := exec.CommandContext(ctx, b.GoBin, "mod", "vendor")
	cmd.Dir = srcDir
	cmd.Env = append(os.Environ(),
		"GOMODCACHE="+b.ModCacheDir,
		"GOFLAGS=",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("go mod vendor failed: %w (output: %s)", err, string(output))
	}
	return nil
}

// VerifyVendor hashes srcDir/vendor and fails closed unless it matches the
// manifest's declared vendor hash. The comparison is purely local, so a
// mismatch reproduces identically regardless of network conditions.
func (b *Builder) VerifyVendor(srcDir string, m *manifest.Manifest) (integrity.Hash, error) {
	vendorDir := filepath.Join(srcDir, "vendor")
	if _, err := os.Stat(vendorDir); err != nil {
		return integrity.Hash{}, fmt.Errorf("no vendor directory in %s (run Vendor first): %w", srcDir, err)
	}
	got, err := integrity.TreeHash(vendorDir)
	if err != nil {
		return integrity.Hash{}, fmt.Errorf("cannot hash vendor tree: %w", err)
	}
	want, err := m.DepsHash()
	if err != nil {
		return integrity.Hash{}, err
	}
	if err := integrity.Verify("vendor", m.Name, want, got); err != nil {
		return got, err
	}
	return got, nil
}

// VendorHash hashes srcDir/vendor without comparing, for manifest authoring.
func (b *Builder) VendorHash(srcDir string) (integrity.Hash, error) {
	got, err := integrity.TreeHash(filepath.Join(srcDir, "vendor"))
	if err != nil {
		return integrity.Hash{}, fmt.Errorf("cannot hash vendor tree: %w", err)
	}
	return got, nil
}

// Build compiles every subpackage of m into outDir and returns the built
// binary paths in subpackage order. It must run after VerifyVendor: the
// compile is pinned to the vendor tree and the module proxy is off.
func (b *Builder) Build(ctx context.Context, srcDir string, m *manifest.Manifest, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create output directory %s: %w", outDir, err)
	}

	var binaries []string
	for _, sub := range m.Build.SubPackages {
		outPath := filepath.Join(outDir, OutputName(m, sub))

		args := []string{"build", "-trimpath", "-mod=vendor"}
		if len(m.Build.Tags) > 0 {
			args = append(args, "-tags", strings.Join(m.Build.Tags, ","))
		}
		args = append(args, "-ldflags", Ldflags(m), "-o", outPath, "./"+path.Clean(sub))

		cmd := exec.CommandContext(ctx, b.GoBin, args...)
		cmd.Dir = srcDir
		cmd.Env = buildEnv(b.ModCacheDir, m.Build.CGO)

		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("go build ./%s failed: %w (output: %s)", path.Clean(sub), err, string(output))
		}
		binaries = append(binaries, outPath)
	}
	return binaries, nil
}

// Ldflags assembles the linker flags for m: the manifest's flags plus the
// -X flag that writes the package version into its version variable, so the
// installed binary self-reports the manifest version.
func Ldflags(m *manifest.Manifest) string {
	flags := append([]string{}, m.Build.Ldflags...)
	flags = append(flags, fmt.Sprintf("-X %s=%s", m.Build.VersionVar, m.Version))
	return strings.Join(flags, " ")
}

// OutputName returns the build-output file name for a subpackage: the base
// of its path, or the package name for the module root.
func OutputName(m *manifest.Manifest, subPkg string) string {
	base := path.Base(path.Clean(subPkg))
	if base == "." || base == "/" {
		return m.Name
	}
	return base
}

// buildEnv is the network-free environment hash-verified compiles run in.
func buildEnv(modCache string, cgo bool) []string {
	env := append(os.Environ(),
		"GOMODCACHE="+modCache,
		"GOFLAGS=-mod=vendor",
		"GOPROXY=off",
	)
	if cgo {
		env = append(env, "CGO_ENABLED=1")
	} else {
		env = append(env, "CGO_ENABLED=0")
	}
	return env
}
