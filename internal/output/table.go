// Package output provides terminal output utilities for pinbuild.
//
// This package includes:
//   - Table rendering for build receipts and verification results
//   - A TTY-aware spinner for long-running pipeline stages
//   - Human-readable formatting for hashes and timestamps
//
// Table rendering uses ASCII characters and ANSI color codes for terminal
// output; colors are suppressed when NO_COLOR is set or stdout is not a TTY.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/pinbuild/internal/store"
)

// ANSI color codes for verification status display
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// RenderReceiptTable renders a table of build receipts.
func RenderReceiptTable(receipts []*store.Receipt) string {
	if len(receipts) == 0 {
		return "No packages installed.\n"
	}

	sorted := make([]*store.Receipt, len(receipts))
	copy(sorted, receipts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %-12s %-24s %-12s %s\n",
		"Package", "Version", "Source", "Built", "Binaries"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, r := range sorted {
		source := fmt.Sprintf("%s:%s/%s", r.Forge, r.Owner, r.Repo)
		bins := make([]string, len(r.Binaries))
		for i, b := range r.Binaries {
			bins[i] = baseName(b)
		}
		sb.WriteString(fmt.Sprintf("%-18s %-12s %-24s %-12s %s\n",
			truncate(r.Name, 18),
			truncate(r.Version, 12),
			truncate(source, 24),
			formatRelativeTime(r.BuiltAt),
			strings.Join(bins, ", ")))
	}
	return sb.String()
}

// VerifyResult is one package's outcome from `pinbuild verify`.
type VerifyResult struct {
	Name   string
	OK     bool
	Detail string
}

// RenderVerifyTable renders verification results, coloring the status column.
func RenderVerifyTable(results []VerifyResult) string {
	if len(results) == 0 {
		return "No packages to verify.\n"
	}

	sorted := make([]VerifyResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %-10s %s\n", "Package", "Status", "Detail"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, res := range sorted {
		status := "✓ ok"
		color := colorGreen
		if !res.OK {
			status = "✗ drift"
			color = colorRed
		}
		if IsColorEnabled() {
			sb.WriteString(fmt.Sprintf("%-18s %s%-10s%s %s\n",
				truncate(res.Name, 18), color, status, colorReset, res.Detail))
		} else {
			sb.WriteString(fmt.Sprintf("%-18s %-10s %s\n",
				truncate(res.Name, 18), status, res.Detail))
		}
	}
	return sb.String()
}

// RenderReceiptDetail renders one receipt in full, for `pinbuild show`.
func RenderReceiptDetail(r *store.Receipt) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Package:     %s\n", r.Name))
	sb.WriteString(fmt.Sprintf("Version:     %s\n", r.Version))
	sb.WriteString(fmt.Sprintf("Source:      %s:%s/%s@%s\n", r.Forge, r.Owner, r.Repo, r.Rev))
	sb.WriteString(fmt.Sprintf("Source hash: %s\n", r.SrcHash))
	sb.WriteString(fmt.Sprintf("Vendor hash: %s\n", r.VendorHash))
	sb.WriteString(fmt.Sprintf("Built:       %s (%s)\n", r.BuiltAt.Format(time.RFC3339), formatRelativeTime(r.BuiltAt)))
	sb.WriteString(fmt.Sprintf("Store path:  %s\n", r.StorePath))
	sb.WriteString("Binaries:\n")
	for _, b := range r.Binaries {
		sb.WriteString(fmt.Sprintf("  %s\n", b))
	}
	if r.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", r.Description))
	}
	if r.License != "" {
		sb.WriteString(fmt.Sprintf("License:     %s\n", r.License))
	}
	return sb.String()
}

// formatRelativeTime renders a timestamp as a relative age like "3d ago".
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// truncate shortens s to max runes, appending "…" when it was cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// baseName returns the final path element.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, "/\\"); i >= 0 {
		return p[i+1:]
	}
	return p
}
