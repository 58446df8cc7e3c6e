package internal

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TrendCount is how often a normalized value appeared across analyses
type TrendCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Trends summarizes recurring patterns across stored analyses
type Trends struct {
	Videos             int          `json:"videos"`
	AvgDurationSeconds float64      `json:"avg_duration_seconds"`
	AvgHookSeconds     float64      `json:"avg_hook_seconds"`
	HookTypes          []TrendCount `json:"hook_types"`
	Techniques         []TrendCount `json:"techniques"`
	Sections           []TrendCount `json:"sections"`
	Tones              []TrendCount `json:"tones"`
	CallsToAction      []TrendCount `json:"calls_to_action"`
	Topics             []TrendCount `json:"topics"`
	ExampleHooks       []string     `json:"example_hooks"`
}

const maxExampleHooks = 5

// ComputeTrends tallies records; top limits each list (0 keeps everything)
func ComputeTrends(records []AnalysisRecord, top int) *Trends {
	hookTypes := map[string]int{}
	techniques := map[string]int{}
	sections := map[string]int{}
	tones := map[string]int{}
	ctas := map[string]int{}
	topics := map[string]int{}

	var (
		durationSum  float64
		durationN    int
		hookSum      float64
		hookN        int
		exampleHooks []AnalysisRecord
	)

	trends := &Trends{}
	for _, record := range records {
		a := record.Analysis
		if a == nil {
			continue
		}
		trends.Videos++

		countValue(hookTypes, a.Hook.Type)
		countValue(tones, a.Tone)
		countValue(ctas, a.CallToAction)
		// a video using a technique twice still counts once
		countDistinct(techniques, a.Techniques)
		countDistinct(topics, a.Topics)
		names := make([]string, 0, len(a.Structure))
		for _, s := range a.Structure {
			names = append(names, s.Name)
		}
		countDistinct(sections, names)

		if a.Hook.Duration > 0 {
			hookSum += a.Hook.Duration
			hookN++
		}
		if d := recordDuration(record); d > 0 {
			durationSum += d
			durationN++
		}
		if strings.TrimSpace(a.Hook.Text) != "" {
			exampleHooks = append(exampleHooks, record)
		}
	}

	if durationN > 0 {
		trends.AvgDurationSeconds = durationSum / float64(durationN)
	}
	if hookN > 0 {
		trends.AvgHookSeconds = hookSum / float64(hookN)
	}

	trends.HookTypes = TopN(hookTypes, top)
	trends.Techniques = TopN(techniques, top)
	trends.Sections = TopN(sections, top)
	trends.Tones = TopN(tones, top)
	trends.CallsToAction = TopN(ctas, top)
	trends.Topics = TopN(topics, top)

	// most viewed hooks first
	slices.SortStableFunc(exampleHooks, func(a, b AnalysisRecord) int {
		return cmp.Compare(viewCount(b), viewCount(a))
	})
	for _, r := range exampleHooks[:min(len(exampleHooks), maxExampleHooks)] {
		trends.ExampleHooks = append(trends.ExampleHooks, strings.TrimSpace(r.Analysis.Hook.Text))
	}

	return trends
}

// NormalizeTrendValue lower-cases and collapses whitespace so "Bold  Claim" and
// "bold claim" are tallied together
func NormalizeTrendValue(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func countValue(counts map[string]int, value string) {
	if v := NormalizeTrendValue(value); v != "" {
		counts[v]++
	}
}

func countDistinct(counts map[string]int, values []string) {
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		v := NormalizeTrendValue(value)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		counts[v]++
	}
}

// TopN sorts counts by frequency, then alphabetically, keeping at most n (0 keeps all)
func TopN(counts map[string]int, n int) []TrendCount {
	out := make([]TrendCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, TrendCount{Value: value, Count: count})
	}
	slices.SortFunc(out, func(a, b TrendCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func recordDuration(record AnalysisRecord) float64 {
	if record.Meta != nil && record.Meta.Duration > 0 {
		return record.Meta.Duration
	}
	if record.Transcript != nil {
		return record.Transcript.Duration
	}
	return 0
}

func viewCount(record AnalysisRecord) int64 {
	if record.Meta == nil {
		return 0
	}
	return record.Meta.ViewCount
}

// RenderTrendsTable draws one table per category
func RenderTrendsTable(trends *Trends) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Videos analyzed: %d\n", trends.Videos)
	if trends.AvgDurationSeconds > 0 {
		fmt.Fprintf(&b, "Average length: %.0fs\n", trends.AvgDurationSeconds)
	}
	if trends.AvgHookSeconds > 0 {
		fmt.Fprintf(&b, "Average hook: %.1fs\n", trends.AvgHookSeconds)
	}

	categories := []struct {
		title  string
		counts []TrendCount
	}{
		{"Hook type", trends.HookTypes},
		{"Technique", trends.Techniques},
		{"Section", trends.Sections},
		{"Tone", trends.Tones},
		{"Call to action", trends.CallsToAction},
		{"Topic", trends.Topics},
	}
	for _, c := range categories {
		if len(c.counts) == 0 {
			continue
		}
		rows := make([][]string, 0, len(c.counts))
		for _, tc := range c.counts {
			rows = append(rows, []string{tc.Value, strconv.Itoa(tc.Count), share(tc.Count, trends.Videos)})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{c.title, "Videos", "Share"}, rows, []ColumnAlignment{AlignLeft, AlignRight, AlignRight}))
		b.WriteString("\n")
	}
	return b.String()
}

func share(count, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(count)*100/float64(total))
}
