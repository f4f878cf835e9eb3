package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/output"
)

var (
	showEvents int

	showCmd = &cobra.Command{
		Use:   "show NAME",
		Short: "Show one package's receipt in detail",
		Long: `Show the full build receipt for an installed package: pinned source
coordinates, both integrity hashes, install location, and binaries.

With --events the most recent build attempts are listed as well.`,
		Example: `  # Show a receipt
  pinbuild show kargo

  # Include the last 5 build attempts
  pinbuild show kargo --events 5`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}
)

func init() {
	showCmd.Flags().IntVar(&showEvents, "events", 0, "also list the N most recent build events")
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	receipt, err := db.GetReceipt(args[0])
	if err != nil {
		return err
	}

	fmt.Print(output.RenderReceiptDetail(receipt))

	if showEvents > 0 {
		events, err := db.ListEvents(args[0], showEvents)
		if err != nil {
			return err
		}
		fmt.Println("Recent builds:")
		for _, e := range events {
			detail := ""
			if e.Detail != "" {
				detail = ": " + e.Detail
			}
			fmt.Printf("  %s  %-8s %s%s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Kind, e.Version, detail)
		}
	}
	return nil
}
