package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long: `List every package with a build receipt: its version, source
coordinates, build time, and installed binaries.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	receipts, err := db.ListReceipts()
	if err != nil {
		return err
	}

	fmt.Print(output.RenderReceiptTable(receipts))
	return nil
}
