package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/manifest"
)

var (
	validateVerbose bool

	validateCmd = &cobra.Command{
		Use:   "validate MANIFEST...",
		Short: "Validate manifests without building",
		Long: `Validate one or more manifest files against the manifest schema and the
semantic rules (forge coordinates, hash formats, subpackage paths, completion
shells) without fetching or building anything.

This lets you catch manifest errors before committing to a full build.`,
		Example: `  # Validate a single manifest
  pinbuild validate manifests/kargo.yaml

  # Validate a whole directory
  pinbuild validate manifests/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
)

func init() {
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "print manifest details after validation")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var bad int
	for _, path := range args {
		m, err := manifest.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			bad++
			continue
		}

		fmt.Printf("✓ %s: %s %s\n", path, m.Name, m.Version)
		if validateVerbose {
			fmt.Printf("    source:      %s:%s@%s\n", m.Source.Forge, m.Ref().Slug(), m.Source.Rev)
			if m.Source.Hash == "" {
				fmt.Printf("    source hash: (not declared; run 'pinbuild fetch %s --print-hash')\n", path)
			} else {
				fmt.Printf("    source hash: %s\n", m.Source.Hash)
			}
			if m.VendorHash == "" {
				fmt.Printf("    vendor hash: (not declared; run 'pinbuild fetch %s --print-vendor-hash')\n", path)
			} else {
				fmt.Printf("    vendor hash: %s\n", m.VendorHash)
			}
			fmt.Printf("    subpackages: %s\n", strings.Join(m.Build.SubPackages, ", "))
			if len(m.Install.Completions) > 0 {
				fmt.Printf("    completions: %s\n", strings.Join(m.Install.Completions, ", "))
			}
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d manifests invalid", bad, len(args))
	}
	return nil
}
