package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pinbuild/internal/integrity"
	"github.com/blackwell-systems/pinbuild/internal/output"
	"github.com/blackwell-systems/pinbuild/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [NAME]",
	Short: "Check installed packages against their receipts",
	Long: `Re-hash the installed store tree of each package (or a single named
package) and compare it to the hash recorded in its receipt at install time.

Drift means something modified the installed files after the build: a manual
edit, a partial delete, or another tool writing into the store.`,
	Example: `  # Verify everything
  pinbuild verify

  # Verify one package
  pinbuild verify kargo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var receipts []*store.Receipt
	if len(args) == 1 {
		r, err := db.GetReceipt(args[0])
		if err != nil {
			return err
		}
		receipts = []*store.Receipt{r}
	} else {
		receipts, err = db.ListReceipts()
		if err != nil {
			return err
		}
	}

	var results []output.VerifyResult
	var drifted int
	for _, r := range receipts {
		results = append(results, verifyReceipt(r))
		if !results[len(results)-1].OK {
			drifted++
		}
	}

	fmt.Print(output.RenderVerifyTable(results))
	if drifted > 0 {
		return fmt.Errorf("%d of %d packages drifted from their receipts", drifted, len(receipts))
	}
	return nil
}

// verifyReceipt re-hashes one installed tree against its receipt.
func verifyReceipt(r *store.Receipt) output.VerifyResult {
	if _, err := os.Stat(r.StorePath); err != nil {
		return output.VerifyResult{Name: r.Name, OK: false, Detail: "store directory missing"}
	}

	want, err := integrity.Parse(r.StoreHash)
	if err != nil {
		return output.VerifyResult{Name: r.Name, OK: false, Detail: fmt.Sprintf("corrupt receipt hash: %v", err)}
	}
	got, err := integrity.TreeHash(r.StorePath)
	if err != nil {
		return output.VerifyResult{Name: r.Name, OK: false, Detail: fmt.Sprintf("cannot hash store tree: %v", err)}
	}
	if !want.Equal(got) {
		return output.VerifyResult{Name: r.Name, OK: false, Detail: "installed tree changed since build"}
	}
	return output.VerifyResult{Name: r.Name, OK: true, Detail: r.Version}
}
