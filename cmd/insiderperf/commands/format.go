package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// Every command prints summaries through these so output stays uniform.
// Summaries go to stderr when stdout carries CSV.
// ═══════════════════════════════════════════════════════════

const rule = "───────────────────────────────────────────────────────────"

// PrintRunSummary prints the outcome of an attribution run
func PrintRunSummary(w io.Writer, result *pipeline.RunResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", 59))
	fmt.Fprintf(w, "  Attribution run %s\n", result.RunID)
	fmt.Fprintln(w, rule)
	PrintKeyValue(w, "Config hash", result.ConfigHash[:12], 14)
	PrintKeyValue(w, "Duration", result.Duration.String(), 14)
	PrintKeyValue(w, "Transactions", fmt.Sprintf("%d", len(result.Transactions)), 14)
	PrintKeyValue(w, "Investors", fmt.Sprintf("%d", len(result.Profiles)), 14)
	PrintKeyValue(w, "Diagnostics", fmt.Sprintf("%d", len(result.Diagnostics)), 14)

	if cov := result.Coverage; cov != nil {
		PrintKeyValue(w, "Valid rows", fmt.Sprintf("%d / %d", cov.ValidTransactions, cov.TotalTransactions), 14)
		PrintKeyValue(w, "Quality score", fmt.Sprintf("%.1f%%", cov.QualityScore*100), 14)
	}
	fmt.Fprintln(w, rule)
}

// PrintDiagnosticCounts prints a table of diagnostic counts by code
func PrintDiagnosticCounts(w io.Writer, diags []contracts.Diagnostic) {
	if len(diags) == 0 {
		return
	}

	counts := make(map[contracts.DiagnosticCode]int)
	var order []contracts.DiagnosticCode
	for _, d := range diags {
		if counts[d.Code] == 0 {
			order = append(order, d.Code)
		}
		counts[d.Code]++
	}

	widths := []int{32, 8, 6}
	PrintTableHeader(w, []string{"Code", "Severity", "Count"}, widths)
	for _, code := range order {
		PrintTableRow(w, []string{string(code), string(code.Severity()), fmt.Sprintf("%d", counts[code])}, widths)
	}
	fmt.Fprintln(w)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}
