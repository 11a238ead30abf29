package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar draws "[███░░] done/total" with the current theme's glyphs.
// A non-positive width uses 28 cells.
func ProgressBar(done, total, width int) string {
	t := Current()
	if width <= 0 {
		width = 28
	}
	filled := 0
	if total > 0 {
		filled = max(0, min(width, done*width/total))
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(t.BarFull, filled),
		strings.Repeat(t.BarEmpty, width-filled),
		done, total,
	)
}

// Frame wraps inner in a box drawn with the current theme's border.
func Frame(inner string) string {
	t := Current()
	return lipgloss.NewStyle().
		Border(t.Border).
		BorderForeground(t.BorderColor).
		Padding(0, 1).
		Render(inner)
}

// Panel joins lines and frames them.
func Panel(lines []string) string {
	return Frame(strings.Join(lines, "\n"))
}

// Header renders "Todos  ✔ d  • p  Total n".
func Header(done, pending int) string {
	t := Current()
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), done,
		t.Pending.Render(t.SymPending), pending,
		t.Accent.Render("Total"), done+pending,
	)
}
