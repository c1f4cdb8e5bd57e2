// Package observability provides logging setup, Prometheus metrics and
// formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/resume-builder/internal/db"
	"github.com/jonathan/resume-builder/internal/ingestion"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResumeSummary outputs a human-readable summary of a résumé graph.
func (p *Printer) PrintResumeSummary(g *db.ResumeGraph) {
	if g == nil {
		return
	}
	r := g.Resume

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", r.Name))
	sb.WriteString(fmt.Sprintf("Title:     %s\n", r.Title))
	sb.WriteString(fmt.Sprintf("Template:  %s\n", r.Template))
	visibility := "private"
	if r.IsPublic {
		visibility = "public"
	}
	sb.WriteString(fmt.Sprintf("Visible:   %s\n", visibility))
	sb.WriteString(fmt.Sprintf("Views:     %d   Downloads: %d\n", r.ViewsCount, r.DownloadsCount))
	sb.WriteString("\n")

	sections := []struct {
		label string
		count int
	}{
		{"Skills", len(g.Skills)},
		{"Education", len(g.Education)},
		{"Languages", len(g.Languages)},
		{"Projects", len(g.Projects)},
		{"Experience", len(g.WorkExperience)},
		{"Certifications", len(g.Certifications)},
		{"Achievements", len(g.Achievements)},
		{"References", len(g.References)},
	}
	for _, s := range sections {
		if s.count > 0 {
			sb.WriteString(fmt.Sprintf("  • %-15s %d\n", s.label, s.count))
		}
	}

	if len(g.Skills) > 0 {
		sb.WriteString("\nTop Skills:\n")
		count := min(len(g.Skills), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s (%s)\n", g.Skills[i].Name, g.Skills[i].Proficiency))
		}
		if len(g.Skills) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(g.Skills)-maxItemsToShow))
		}
	}

	p.printBox("RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIngestionReport outputs the rows skipped and the fallbacks applied
// while importing a submission.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintIngestionReport(report *ingestion.Report) {
	if report == nil || (report.TotalSkipped() == 0 && len(report.Warnings) == 0) {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ ALL ROWS IMPORTED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	if n := report.TotalSkipped(); n > 0 {
		sb.WriteString(fmt.Sprintf("Skipped %d blank rows:\n", n))
		kinds := make([]string, 0, len(report.Skipped))
		for kind := range report.Skipped {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", kind, report.Skipped[kind]))
		}
		sb.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("Applied %d fallbacks:\n", len(report.Warnings)))
		count := min(len(report.Warnings), maxItemsToShow)
		for i := 0; i < count; i++ {
			w := report.Warnings[i]
			sb.WriteString(fmt.Sprintf("⚠ %s #%d %s\n", w.Kind, w.Row+1, w.Field))
			sb.WriteString(fmt.Sprintf("  %s\n", w.Message))
		}
		if len(report.Warnings) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Warnings)-maxItemsToShow))
		}
	}

	p.printBox("IMPORT REPORT", strings.TrimSuffix(sb.String(), "\n"))
}
