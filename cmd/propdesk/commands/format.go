package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// out is where every command prints (replaced in tests)
var out io.Writer = os.Stdout

// PrintHeader prints a formatted section header
func PrintHeader(title string, lines ...string) {
	fmt.Fprintln(out)
	PrintDoubleSeparator()
	fmt.Fprintf(out, "  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, l := range lines {
			fmt.Fprintf(out, "  %s\n", l)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Fprintln(out, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintf(out, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Fprintf(out, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(out, "❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Fprintf(out, "ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(out, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row. Widths count runes, not bytes.
func PrintTableRow(values []string, widths []int) {
	var b strings.Builder
	for i, val := range values {
		b.WriteString(val)
		if pad := widths[i] - utf8.RuneCountInString(val); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		if i < len(values)-1 {
			b.WriteString("  ")
		}
	}
	fmt.Fprintln(out, strings.TrimRight(b.String(), " "))
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Fprintf(out, "   • %s\n", item)
	}
}

// PrintNumberedList prints a numbered list
func PrintNumberedList(items []string) {
	for i, item := range items {
		fmt.Fprintf(out, "   %d. %s\n", i+1, item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Fprintf(out, "   %-*s : %s\n", keyWidth, key, value)
}
