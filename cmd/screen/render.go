package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder())
)

func colored(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

func severityStyle(s growth.Severity) lipgloss.Style {
	return colored(s.Color()).Bold(true)
}

// renderReport draws a growth report as a bordered card, one line per
// indicator, colored by severity.
func renderReport(r *growth.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n",
		titleStyle.Render("Growth"),
		faintStyle.Render(fmt.Sprintf("%s, %d days, %.1f kg, %.1f cm",
			r.Profile.Sex, r.Profile.AgeDays, r.Profile.WeightKg, r.Profile.HeightCm)))

	for _, a := range r.Assessments {
		z := "z=n/a"
		if a.ZScore != nil && a.Percentile != nil {
			z = fmt.Sprintf("z=%+.2f  p%.1f", *a.ZScore, *a.Percentile)
		}
		fmt.Fprintf(&b, "%-22s %7.2f %-5s %s  %s\n",
			a.Indicator,
			a.Value,
			a.Unit,
			colored(a.Color).Render(z),
			severityStyle(a.Classification.Severity).Render(string(a.Classification.Category)))
	}
	for _, kind := range r.Missing {
		fmt.Fprintf(&b, "%-22s %s\n", kind, faintStyle.Render("no reference table"))
	}

	summary := string(r.Summary.Severity)
	if c := r.Summary.MainConcern; c != nil {
		summary = fmt.Sprintf("%s: %s", c.Category, c.Explanation)
		if c.Recommendation != "" {
			summary += "\n" + c.Recommendation
		}
	}
	fmt.Fprintf(&b, "\n%s", severityStyle(r.Summary.Severity).Render(summary))

	for _, n := range r.Notes {
		fmt.Fprintf(&b, "\n%s", faintStyle.Render("• "+n.Message))
	}

	return cardStyle.BorderForeground(lipgloss.Color(r.Summary.Color)).Render(b.String())
}

func triageColor(level domain.TriageLevel) string {
	switch level {
	case domain.TriageEmergency, domain.TriageReferImmediately:
		return growth.ColorDanger
	case domain.TriageDiagnosed:
		return growth.ColorWarning
	default:
		return growth.ColorNeutral
	}
}

// renderOutcome draws the terminal result of a screening.
func renderOutcome(o *domain.ScreeningOutcome) string {
	hex := triageColor(o.TriageLevel)
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n",
		colored(hex).Bold(true).Render(string(o.TriageLevel)),
		titleStyle.Render(string(o.Status)))

	switch {
	case o.Emergency != nil:
		fmt.Fprintf(&b, "Danger sign: %s\n", o.Emergency.Question)
		if o.Emergency.Reason != "" {
			fmt.Fprintf(&b, "%s\n", faintStyle.Render(o.Emergency.Reason))
		}
		b.WriteString("Refer to a health facility immediately.\n")
	case o.TopDisease != nil:
		fmt.Fprintf(&b, "Most likely: %s (%.0f%%)\n", o.TopDisease.Name, o.TopDisease.Probability*100)
		if o.TopDisease.Urgent {
			b.WriteString("This condition needs urgent care.\n")
		}
	}

	for _, line := range o.Explanation {
		fmt.Fprintf(&b, "%s\n", faintStyle.Render("• "+line))
	}

	return cardStyle.BorderForeground(lipgloss.Color(hex)).Render(strings.TrimRight(b.String(), "\n"))
}

// renderBatch draws one line per batch row.
func renderBatch(results []batchResult) string {
	var b strings.Builder
	for _, res := range results {
		ref := res.Ref
		if ref == "" {
			ref = fmt.Sprintf("line %d", res.Line)
		}
		if res.Err != nil {
			fmt.Fprintf(&b, "%-16s %s\n", ref, colored(growth.ColorNeutral).Render("invalid: "+res.Err.Error()))
			continue
		}
		concern := "normal"
		if c := res.Report.Summary.MainConcern; c != nil {
			concern = fmt.Sprintf("%s (%s)", c.Category, c.Indicator)
		}
		fmt.Fprintf(&b, "%-16s %s %s\n",
			ref,
			severityStyle(res.Report.Summary.Severity).Render(fmt.Sprintf("%-8s", res.Report.Summary.Severity)),
			concern)
	}
	return b.String()
}
