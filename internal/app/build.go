package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/fetch"
	"github.com/blackwell-systems/pinbuild/internal/gobuild"
	"github.com/blackwell-systems/pinbuild/internal/install"
	"github.com/blackwell-systems/pinbuild/internal/integrity"
	"github.com/blackwell-systems/pinbuild/internal/manifest"
	"github.com/blackwell-systems/pinbuild/internal/output"
	"github.com/blackwell-systems/pinbuild/internal/shell"
	"github.com/blackwell-systems/pinbuild/internal/store"
)

var (
	buildKeepGoing bool
	buildQuiet     bool

	buildCmd = &cobra.Command{
		Use:   "build MANIFEST...",
		Short: "Fetch, verify, compile, and install packages",
		Long: `Build one or more packages from their manifests.

For each manifest the full pipeline runs:
  1. Fetch the pinned source archive and verify the source tree hash.
  2. Vendor the dependency set and verify the vendor hash.
  3. Compile the declared subpackages with the version injected via -X.
  4. Install binaries and generate shell completions.
  5. Record a receipt in the database.

Any hash mismatch aborts the build for that package; nothing is installed.`,
		Example: `  # Build a single package
  pinbuild build manifests/kargo.yaml

  # Build many, continuing past failures
  pinbuild build manifests/*.yaml --keep-going`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().BoolVar(&buildKeepGoing, "keep-going", false, "continue with remaining manifests after a failure")
	buildCmd.Flags().BoolVar(&buildQuiet, "quiet", false, "suppress progress output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var failed []string
	for _, path := range args {
		m, err := manifest.Load(path)
		if err != nil {
			if buildKeepGoing {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				failed = append(failed, path)
				continue
			}
			return err
		}
		if err := buildManifest(cmd.Context(), db, m, buildQuiet); err != nil {
			if buildKeepGoing {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", m.Name, err)
				failed = append(failed, m.Name)
				continue
			}
			return fmt.Errorf("%s: %w", m.Name, err)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d builds failed: %v", len(failed), len(args), failed)
	}
	return nil
}

// buildManifest runs the full pipeline for one manifest and records the
// outcome in the receipts database. It is shared with the watch daemon.
func buildManifest(ctx context.Context, db *store.Store, m *manifest.Manifest, quiet bool) error {
	root, err := getRootDir()
	if err != nil {
		return err
	}

	err = runPipeline(ctx, root, m, db, quiet)

	event := &store.BuildEvent{
		Name:      m.Name,
		Version:   m.Version,
		Kind:      store.EventSuccess,
		Timestamp: time.Now(),
	}
	if err != nil {
		event.Kind = store.EventFailure
		event.Detail = err.Error()
	}
	if recErr := db.RecordEvent(event); recErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", recErr)
	}
	return err
}

// runPipeline is the fetch → verify → build → install sequence.
func runPipeline(ctx context.Context, root string, m *manifest.Manifest, db *store.Store, quiet bool) error {
	isTTY := isatty.IsTerminal(os.Stdout.Fd())
	workDir := filepath.Join(root, "cache", "work", m.Name)
	defer os.RemoveAll(workDir)

	stage := func(msg string) *output.Spinner {
		if quiet {
			return nil
		}
		if isTTY {
			sp := output.NewSpinner(msg)
			sp.Start()
			return sp
		}
		fmt.Printf("%s...\n", msg)
		return nil
	}
	done := func(sp *output.Spinner, msg string) {
		if sp != nil {
			sp.StopWithMessage(msg)
		} else if !quiet {
			fmt.Println(msg)
		}
	}
	fail := func(sp *output.Spinner) {
		if sp != nil {
			sp.Stop()
		}
	}

	// Stage 1: fetch + source hash gate.
	fetcher := fetch.New()
	fetcher.SetQuiet(quiet || !isTTY)
	sp := stage(fmt.Sprintf("Fetching %s@%s", m.Ref().Slug(), m.Source.Rev))
	srcDir, err := fetcher.VerifiedSource(ctx, m, workDir)
	if err != nil {
		fail(sp)
		return err
	}
	done(sp, fmt.Sprintf("✓ Source verified (%s)", m.Source.Hash))

	// Stage 2: vendor + dependency hash gate.
	builder := gobuild.New(filepath.Join(root, "cache"))
	sp = stage("Vendoring dependencies")
	if err := builder.Vendor(ctx, srcDir); err != nil {
		fail(sp)
		return err
	}
	if _, err := builder.VerifyVendor(srcDir, m); err != nil {
		fail(sp)
		return err
	}
	done(sp, fmt.Sprintf("✓ Dependencies verified (%s)", m.VendorHash))

	// Stage 3: compile.
	sp = stage(fmt.Sprintf("Building %s %s", m.Name, m.Version))
	binaries, err := builder.Build(ctx, srcDir, m, filepath.Join(workDir, "out"))
	if err != nil {
		fail(sp)
		return err
	}
	done(sp, fmt.Sprintf("✓ Built %d binar%s", len(binaries), pluralIes(len(binaries))))

	// Stage 4: install + completions.
	installer := install.New(root)
	sp = stage("Installing")
	res, err := installer.Install(m, binaries)
	if err != nil {
		fail(sp)
		return err
	}
	storeHash, err := integrity.TreeHash(res.StorePath)
	if err != nil {
		fail(sp)
		return fmt.Errorf("cannot hash installed tree: %w", err)
	}
	done(sp, fmt.Sprintf("✓ Installed to %s", res.StorePath))

	// Stage 5: receipt.
	receipt := &store.Receipt{
		Name:        m.Name,
		Version:     m.Version,
		Forge:       m.Source.Forge,
		Owner:       m.Source.Owner,
		Repo:        m.Source.Repo,
		Rev:         m.Source.Rev,
		SrcHash:     m.Source.Hash,
		VendorHash:  m.VendorHash,
		BuiltAt:     time.Now(),
		StorePath:   res.StorePath,
		StoreHash:   storeHash.String(),
		Binaries:    res.Binaries,
		Description: m.Meta.Description,
		License:     m.Meta.License,
	}
	if err := db.RecordReceipt(receipt); err != nil {
		return err
	}

	if !quiet {
		if added, configFile, err := shell.EnsurePathEntry(installer.BinDir()); err == nil && added {
			fmt.Printf("Added %s to PATH in %s (restart your shell to pick it up)\n", installer.BinDir(), configFile)
		}
	}
	return nil
}

// pluralIes returns "y" or "ies" for binary/binaries.
func pluralIes(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
