package internal

import (
	"fmt"
	"strings"
	"time"
)

// BatchReportMarkdown renders a batch summary as Markdown
func BatchReportMarkdown(result *BatchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Batch %s\n\n", shortID(result.ID))
	fmt.Fprintf(&b, "- Started: %s\n", formatTime(result.StartedAt))
	fmt.Fprintf(&b, "- Finished: %s (%s)\n", formatTime(result.CompletedAt), result.CompletedAt.Sub(result.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "- Videos: %d (%d succeeded, %d failed)\n", len(result.Items), result.Successful, result.Failed)
	fmt.Fprintf(&b, "- Workers: %d of %d requested\n", result.Workers, result.Concurrency)
	if result.OutputDir != "" {
		fmt.Fprintf(&b, "- Output: `%s`\n", result.OutputDir)
	}

	b.WriteString("\n## Videos\n\n")
	b.WriteString("| # | Status | Title | Hook | Tone |\n")
	b.WriteString("|---|--------|-------|------|------|\n")
	for i, item := range result.Items {
		title, hook, tone := item.URL, "", ""
		if item.Result != nil {
			if item.Result.Meta != nil && item.Result.Meta.Title != "" {
				title = item.Result.Meta.Title
			}
			if a := item.Result.Analysis; a != nil {
				hook, tone = a.Hook.Type, a.Tone
			}
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", i+1, item.Status, tableCell(title), tableCell(hook), tableCell(tone))
	}

	if failed := result.FailedItems(); len(failed) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, item := range failed {
			fmt.Fprintf(&b, "- %s: %s\n", item.URL, item.Error)
		}
	}

	var records []AnalysisRecord
	for _, item := range result.Items {
		if item.Status == StatusCompleted && item.Result != nil && item.Result.Analysis != nil {
			records = append(records, AnalysisRecord{
				URL:        item.URL,
				Meta:       item.Result.Meta,
				Transcript: item.Result.Transcript,
				Analysis:   item.Result.Analysis,
			})
		}
	}
	if len(records) > 1 {
		trends := ComputeTrends(records, 5)
		b.WriteString("\n## Patterns\n\n")
		writeTrendLine(&b, "Hook types", trends.HookTypes)
		writeTrendLine(&b, "Techniques", trends.Techniques)
		writeTrendLine(&b, "Sections", trends.Sections)
		writeTrendLine(&b, "Tones", trends.Tones)
	}

	return b.String()
}

// AnalysisMarkdown renders one stored analysis as Markdown
func AnalysisMarkdown(record *AnalysisRecord) string {
	var b strings.Builder

	title := record.URL
	if record.Meta != nil && record.Meta.Title != "" {
		title = record.Meta.Title
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if m := record.Meta; m != nil {
		if m.Channel != "" {
			fmt.Fprintf(&b, "**Channel:** %s  \n", m.Channel)
		}
		if m.Duration > 0 {
			fmt.Fprintf(&b, "**Length:** %.0fs  \n", m.Duration)
		}
		if m.ViewCount > 0 {
			fmt.Fprintf(&b, "**Views:** %d  \n", m.ViewCount)
		}
		b.WriteString("\n")
	}

	a := record.Analysis
	if a == nil {
		b.WriteString("_No analysis available._\n")
		return b.String()
	}

	b.WriteString("## Hook\n\n")
	fmt.Fprintf(&b, "> %s\n\n", strings.TrimSpace(a.Hook.Text))
	fmt.Fprintf(&b, "Type: **%s**", a.Hook.Type)
	if a.Hook.Duration > 0 {
		fmt.Fprintf(&b, " (first %.1fs)", a.Hook.Duration)
	}
	b.WriteString("\n")

	if len(a.Structure) > 0 {
		b.WriteString("\n## Structure\n\n")
		b.WriteString("| Section | Time | Purpose |\n")
		b.WriteString("|---------|------|---------|\n")
		for _, s := range a.Structure {
			fmt.Fprintf(&b, "| %s | %s-%s | %s |\n", tableCell(s.Name), formatTimestamp(s.Start), formatTimestamp(s.End), tableCell(s.Purpose))
		}
	}

	writeList(&b, "Techniques", a.Techniques)
	b.WriteString("\n## Delivery\n\n")
	fmt.Fprintf(&b, "- Tone: %s\n", a.Tone)
	fmt.Fprintf(&b, "- Pacing: %s\n", a.Pacing)
	if a.CallToAction != "" {
		fmt.Fprintf(&b, "- Call to action: %s\n", a.CallToAction)
	}
	if a.TargetAudience != "" {
		fmt.Fprintf(&b, "- Audience: %s\n", a.TargetAudience)
	}
	writeList(&b, "Topics", a.Topics)
	writeList(&b, "Key takeaways", a.KeyTakeaways)

	if a.Provider != "" || a.Model != "" {
		fmt.Fprintf(&b, "\n_Analyzed by %s %s_\n", a.Provider, a.Model)
	}
	return b.String()
}

func writeList(b *strings.Builder, heading string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", heading)
	for _, v := range values {
		fmt.Fprintf(b, "- %s\n", v)
	}
}

func writeTrendLine(b *strings.Builder, label string, counts []TrendCount) {
	if len(counts) == 0 {
		return
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s (%d)", c.Value, c.Count))
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(parts, ", "))
}

// tableCell keeps a value on one Markdown table row
func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
