// Package app wires the pinbuild commands: declarative, hash-pinned builds
// of Go CLI tools from YAML manifests.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/store"
)

var (
	rootFlag string
	dbFlag   string

	// RootCmd is the root command for pinbuild
	RootCmd = &cobra.Command{
		Use:   "pinbuild",
		Short: "Reproducible builds of Go CLI tools from pinned manifests",
		Long: `pinbuild builds and installs Go CLI tools from declarative YAML manifests.

Each manifest pins an upstream revision together with two integrity hashes:
one over the fetched source tree and one over the vendored dependency set.
A build fetches the pinned source, verifies both hashes (aborting on any
mismatch), compiles the declared subpackages with the manifest version
injected via linker flags, and installs the binaries plus their shell
completions under the pinbuild root.

Authoring workflow:
  1. Write a manifest with name, version, and source coordinates.
  2. pinbuild fetch pkg.yaml --print-hash          # fill in source.hash
  3. pinbuild fetch pkg.yaml --print-vendor-hash   # fill in vendorHash
  4. pinbuild build pkg.yaml

Examples:
  # Validate manifests without building
  pinbuild validate manifests/*.yaml

  # Build and install a package
  pinbuild build manifests/kargo.yaml

  # See what is installed
  pinbuild list

  # Check installed trees against their receipts
  pinbuild verify

  # Rebuild automatically when manifests change
  pinbuild watch --dir manifests --daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "pinbuild root directory (default: ~/.pinbuild)")
	RootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "receipts database path (default: <root>/pinbuild.db)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(fetchCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(verifyCmd)
	RootCmd.AddCommand(removeCmd)
	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// SetVersion wires the linker-injected version into cobra's --version.
func SetVersion(version string) {
	RootCmd.Version = version
}

// getRootDir returns the pinbuild root, creating it if needed.
func getRootDir() (string, error) {
	if rootFlag != "" {
		if err := os.MkdirAll(rootFlag, 0755); err != nil {
			return "", fmt.Errorf("failed to create root directory: %w", err)
		}
		return rootFlag, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	root := filepath.Join(home, ".pinbuild")
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("failed to create root directory: %w", err)
	}
	return root, nil
}

// getDBPath returns the receipts database path.
func getDBPath() (string, error) {
	if dbFlag != "" {
		return dbFlag, nil
	}
	root, err := getRootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "pinbuild.db"), nil
}

// openStore opens the receipts database and ensures the schema exists.
func openStore() (*store.Store, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return db, nil
}

// getPIDFile returns the watch daemon PID file path.
func getPIDFile() (string, error) {
	root, err := getRootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "watch.pid"), nil
}

// getLogFile returns the watch daemon log file path.
func getLogFile() (string, error) {
	root, err := getRootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "watch.log"), nil
}
