// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders research reports as Markdown, a terminal table,
// or JSON, and saves or loads them as YAML files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// HighQualityScore marks findings worth calling out in the summary.
const HighQualityScore = 8.0

// Confidence levels.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Confidence grades a result set: HIGH needs at least 5 results averaging
// 8.0 or more, MEDIUM at least 2 averaging 7.0 or more; anything else is LOW.
func Confidence(results []types.ScoredResult) string {
	if len(results) == 0 {
		return ConfidenceLow
	}
	var sum float64
	for _, r := range results {
		sum += r.OverallScore
	}
	mean := sum / float64(len(results))
	switch {
	case len(results) >= 5 && mean >= 8.0:
		return ConfidenceHigh
	case len(results) >= 2 && mean >= 7.0:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// Markdown writes rep as a Markdown research report.
func Markdown(rep types.ResearchReport, w io.Writer) error {
	var b strings.Builder
	m := rep.Methodology

	fmt.Fprintf(&b, "# Research Report: %s\n\n", rep.Query)
	fmt.Fprintf(&b, "_Generated %s_\n\n", rep.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))

	if rep.Summary != "" {
		fmt.Fprintf(&b, "## Quick Summary\n\n%s\n\n", rep.Summary)
	}

	b.WriteString("## Research Plan\n\n")
	fmt.Fprintf(&b, "- **Query:** %s\n", rep.Query)
	mode := m.SearchMode
	if mode == "" {
		mode = types.ModeNormal
	}
	fmt.Fprintf(&b, "- **Search Mode:** %s\n", mode)
	domains := "None"
	if len(m.DomainsFocused) > 0 {
		domains = strings.Join(m.DomainsFocused, ", ")
	}
	fmt.Fprintf(&b, "- **Domains Used:** %s\n", domains)
	fmt.Fprintf(&b, "- **Tools:** %s\n\n", joinProviders(m.ToolsUsed))

	b.WriteString("## Findings\n\n")
	if len(rep.Results) == 0 {
		b.WriteString("No results met the quality threshold.\n\n")
	} else {
		b.WriteString("| # | Title | Domain | Tool | Score |\n")
		b.WriteString("|---|-------|--------|------|-------|\n")
		for i, r := range rep.Results {
			fmt.Fprintf(&b, "| %d | [%s](%s) | %s | %s | %.1f |\n",
				i+1, cell(displayTitle(r)), r.URL, r.SourceDomain, toolLabel(r.Provider), r.OverallScore)
		}
		b.WriteString("\n")

		var high []types.ScoredResult
		for _, r := range rep.Results {
			if r.OverallScore >= HighQualityScore {
				high = append(high, r)
			}
		}
		if len(high) > 0 {
			fmt.Fprintf(&b, "### High-Quality Findings (score ≥ %.1f)\n\n", HighQualityScore)
			for _, r := range high {
				fmt.Fprintf(&b, "- **%s** (%s, %.1f/10)", displayTitle(r), r.SourceDomain, r.OverallScore)
				if r.Snippet != "" {
					fmt.Fprintf(&b, ": %s", r.Snippet)
				}
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Critical Analysis\n\n")
	fmt.Fprintf(&b, "- **Confidence Level:** %s\n", Confidence(rep.Results))
	fmt.Fprintf(&b, "- **Candidates considered:** %d (%d duplicates removed, %d malformed)\n",
		m.Candidates, m.DuplicatesRemoved, m.Malformed)
	if len(m.Failures) > 0 {
		b.WriteString("- **Data Gaps & Limitations:**\n")
		for _, f := range m.Failures {
			fmt.Fprintf(&b, "  - %s unavailable: %s\n", toolLabel(f.Provider), f.Reason)
		}
	}
	undated := 0
	for _, r := range rep.Results {
		if r.PublishedDate.IsZero() {
			undated++
		}
	}
	if undated > 0 {
		fmt.Fprintf(&b, "- %d of %d sources carry no publication date.\n", undated, len(rep.Results))
	}
	b.WriteString("\n")

	b.WriteString("## Sources & Citations\n\n")
	for _, p := range m.ToolsUsed {
		var lines []string
		for _, r := range rep.Results {
			if r.Provider == p {
				lines = append(lines, fmt.Sprintf("- [%s] - %s - %s - Score: %.1f/10",
					toolLabel(p), r.URL, displayTitle(r), r.OverallScore))
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", toolLabel(p), strings.Join(lines, "\n"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// MarkdownString renders rep with Markdown.
func MarkdownString(rep types.ResearchReport) string {
	var b strings.Builder
	_ = Markdown(rep, &b)
	return b.String()
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(rep types.ResearchReport, w io.Writer) {
	if len(rep.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		printFailures(rep.Methodology, w)
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-22s  %-10s  %-10s  %s\n",
		"Rank", "Title", "Domain", "Date", "Provider", "Score")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for i, r := range rep.Results {
		date := ""
		if !r.PublishedDate.IsZero() {
			date = r.PublishedDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-4d  %-50s  %-22s  %-10s  %-10s  %.2f\n",
			i+1, Truncate(displayTitle(r), 50), Truncate(r.SourceDomain, 22), date, r.Provider, r.OverallScore)
	}

	fmt.Fprintf(w, "\n%d results", len(rep.Results))
	if rep.Methodology.DuplicatesRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", rep.Methodology.DuplicatesRemoved)
	}
	fmt.Fprintln(w)
	if rep.Summary != "" {
		fmt.Fprintf(w, "\nSummary: %s\n", rep.Summary)
	}
	printFailures(rep.Methodology, w)
}

// FormatJSON writes the report as indented JSON to w.
func FormatJSON(rep types.ResearchReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func printFailures(m types.Methodology, w io.Writer) {
	for _, f := range m.Failures {
		fmt.Fprintf(w, "warning: provider %s failed: %s\n", f.Provider, f.Reason)
	}
}

func toolLabel(p types.Provider) string {
	switch p {
	case types.ProviderPerplexity:
		return "Perplexity"
	case types.ProviderTavily:
		return "Tavily"
	case types.ProviderExa:
		return "Exa"
	}
	return string(p)
}

func joinProviders(ps []types.Provider) string {
	if len(ps) == 0 {
		return "None"
	}
	labels := make([]string, len(ps))
	for i, p := range ps {
		labels[i] = toolLabel(p)
	}
	return strings.Join(labels, ", ")
}

func displayTitle(r types.ScoredResult) string {
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}

// cell escapes pipes so a title cannot break the Markdown table.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Truncate shortens s to at most max runes, ending in "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
