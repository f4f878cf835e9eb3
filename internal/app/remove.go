package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/install"
	"github.com/blackwell-systems/pinbuild/internal/store"
)

var (
	removeForce bool

	removeCmd = &cobra.Command{
		Use:   "remove NAME",
		Short: "Uninstall a package and delete its receipt",
		Long: `Remove an installed package: delete its store directory, the PATH
symlinks pointing into it, and its receipt from the database.

The removal is recorded in the build event history.`,
		Example: `  # Remove with confirmation
  pinbuild remove kargo

  # Remove without prompting
  pinbuild remove kargo --force`,
		Args: cobra.ExactArgs(1),
		RunE: runRemove,
	}
)

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "skip the confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	receipt, err := db.GetReceipt(name)
	if err != nil {
		return err
	}

	if !removeForce {
		fmt.Printf("Remove %s %s (%s)? [y/N] ", receipt.Name, receipt.Version, receipt.StorePath)
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	root, err := getRootDir()
	if err != nil {
		return err
	}
	installer := install.New(root)
	if err := installer.Uninstall(receipt.Name, receipt.Version); err != nil {
		return err
	}
	if err := db.DeleteReceipt(name); err != nil {
		return err
	}

	event := &store.BuildEvent{
		Name:      receipt.Name,
		Version:   receipt.Version,
		Kind:      store.EventRemoved,
		Timestamp: time.Now(),
	}
	if err := db.RecordEvent(event); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	fmt.Printf("✓ Removed %s %s\n", receipt.Name, receipt.Version)
	return nil
}
