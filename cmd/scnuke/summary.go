package main

import (
	"fmt"
	"strings"

	"github.com/safetyops/scnuke/internal/stats"
	"github.com/safetyops/scnuke/internal/ui"
)

// renderSummary formats the per-kind outcome table printed after a run.
func renderSummary(summaries []stats.Summary) string {
	var b strings.Builder
	b.WriteString(ui.HeaderStyle.Render("Summary"))
	b.WriteString("\n")

	var totalDeleted, totalFailed int
	for _, s := range summaries {
		totalDeleted += s.Deleted
		totalFailed += s.Failed

		switch {
		case s.Fetched == 0:
			fmt.Fprintf(&b, "  %s %-12s %s\n",
				ui.MutedStyle.Render(ui.IconSkip), s.Kind, ui.MutedStyle.Render("none found"))
		case s.Failed == 0:
			fmt.Fprintf(&b, "  %s %-12s %d deleted\n",
				ui.PassStyle.Render(ui.IconPass), s.Kind, s.Deleted)
		default:
			fmt.Fprintf(&b, "  %s %-12s %d deleted, %d failed\n",
				ui.FailStyle.Render(ui.IconFail), s.Kind, s.Deleted, s.Failed)
		}

		for _, msg := range s.Errors {
			fmt.Fprintf(&b, "      %s\n", ui.MutedStyle.Render(msg))
		}
		if s.ErrorsTruncated > 0 {
			fmt.Fprintf(&b, "      %s\n",
				ui.MutedStyle.Render(fmt.Sprintf("... and %d more errors", s.ErrorsTruncated)))
		}
	}

	if totalFailed > 0 {
		fmt.Fprintf(&b, "\n%s\n", ui.FailStyle.Render(
			fmt.Sprintf("%d deleted, %d failed", totalDeleted, totalFailed)))
	} else {
		fmt.Fprintf(&b, "\n%s\n", ui.PassStyle.Render(
			fmt.Sprintf("%d deleted", totalDeleted)))
	}
	return b.String()
}
