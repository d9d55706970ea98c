package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}

	return func(markdown string) (string, error) {
		out, err := r.Render(markdown)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n"), nil
	}
}

// ReportMarkdown summarises a run report as markdown.
func ReportMarkdown(r *domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run `%s`\n\n", r.ID)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| unit | %s |\n", r.Unit)
	fmt.Fprintf(&b, "| duration | %s |\n", r.Duration())
	fmt.Fprintf(&b, "| drives | %d |\n", r.Drives)
	fmt.Fprintf(&b, "| spawns | %d |\n", r.Stats.Spawns)
	fmt.Fprintf(&b, "| rendezvous | %d |\n", r.Stats.Rendezvous)
	fmt.Fprintf(&b, "| kills | %d |\n", r.Stats.Kills)
	fmt.Fprintf(&b, "| delegations | %d |\n", r.Stats.Delegations)
	fmt.Fprintf(&b, "| roots | +%d / -%d (live %d) |\n", r.Roots.Added, r.Roots.Removed, r.Roots.Live)
	fmt.Fprintf(&b, "| collected | %d |\n", r.Collected)

	if len(r.Roots.Violations) > 0 {
		b.WriteString("\n## Root violations\n\n")
		for _, v := range r.Roots.Violations {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\n**Error:** %s\n", r.Error)
	}
	return b.String()
}

// RenderReport renders a report for the terminal, or as plain markdown when
// color is false.
func RenderReport(r *domain.Report, color bool) string {
	md := ReportMarkdown(r)
	if !color {
		return md
	}
	out, err := NewRenderer()(md)
	if err != nil {
		return md
	}
	return out
}
