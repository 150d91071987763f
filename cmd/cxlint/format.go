package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"cxlint/internal/complexity"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatTOML  OutputFormat = "toml"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *CheckResponseCLI:
		return formatCheckHuman(v), nil
	case *RulesResponseCLI:
		return formatRulesHuman(v), nil
	case *CacheStatsResponseCLI:
		return formatCacheStatsHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatCheckHuman prints one line per offense, then a summary:
//
//	app/models/user.rb:10:3: C: Metrics/CyclomaticComplexity: Cyclomatic complexity for x is too high. [9/7]
func formatCheckHuman(resp *CheckResponseCLI) string {
	var b strings.Builder

	for _, f := range resp.Files {
		if f.Error != nil {
			fmt.Fprintf(&b, "%s: E: %s: %s\n", f.Path, f.Error.Code, f.Error.Message)
		}
		for _, o := range f.Offenses {
			fmt.Fprintf(&b, "%s:%d:%d: C: %s: %s\n", f.Path, o.Line, o.Column+1, o.Rule, o.Message)
		}
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	s := resp.Summary
	fmt.Fprintf(&b, "%s inspected, %s detected",
		plural(s.Inspected, "file"), plural(s.Offenses, "offense"))
	if s.Errors > 0 {
		fmt.Fprintf(&b, ", %s", plural(s.Errors, "error"))
	}
	if s.Cached > 0 {
		fmt.Fprintf(&b, " (%s from cache)", humanize.Comma(int64(s.Cached)))
	}
	fmt.Fprintf(&b, " in %s\n", time.Duration(resp.DurationMs)*time.Millisecond)

	if len(s.ByRule) > 0 {
		rules := make([]string, 0, len(s.ByRule))
		for r := range s.ByRule {
			rules = append(rules, r)
		}
		sort.Strings(rules)
		for _, r := range rules {
			fmt.Fprintf(&b, "  %-36s %s\n", r, humanize.Comma(int64(s.ByRule[r])))
		}
	}
	if resp.TodoFile != "" {
		fmt.Fprintf(&b, "Created %s.\n", resp.TodoFile)
	}
	return b.String()
}

func formatRulesHuman(resp *RulesResponseCLI) string {
	var b strings.Builder
	for _, r := range resp.Rules {
		fmt.Fprintf(&b, "%s\n", r.Name)
		fmt.Fprintf(&b, "  variant: %s\n", r.Variant)
		fmt.Fprintf(&b, "  max:     %s\n", complexity.FormatScore(r.Max))
		fmt.Fprintf(&b, "  counts:  %s\n", strings.Join(r.Counted, ", "))
		if len(r.AllowedMethods) > 0 {
			fmt.Fprintf(&b, "  allowed: %s\n", strings.Join(r.AllowedMethods, ", "))
		}
		if len(r.AllowedPatterns) > 0 {
			fmt.Fprintf(&b, "  allowed patterns: %s\n", strings.Join(r.AllowedPatterns, ", "))
		}
		fmt.Fprintf(&b, "  message: %s\n", r.Message)
	}
	if len(resp.Variants) > 0 {
		fmt.Fprintf(&b, "\nVariants: %s\n", strings.Join(resp.Variants, ", "))
	}
	return b.String()
}

func formatCacheStatsHuman(resp *CacheStatsResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cache: %s\n", resp.Path)
	fmt.Fprintf(&b, "  Entries: %s (%s)\n", humanize.Comma(resp.Entries), plural(int(resp.Files), "file"))
	fmt.Fprintf(&b, "  Size:    %s stored, %s raw", humanize.Bytes(uint64(resp.StoredBytes)), humanize.Bytes(uint64(resp.RawBytes)))
	if resp.Ratio > 0 {
		fmt.Fprintf(&b, " (%.1fx)", resp.Ratio)
	}
	b.WriteString("\n")
	if !resp.Oldest.IsZero() {
		fmt.Fprintf(&b, "  Oldest:  %s\n", humanize.Time(resp.Oldest))
	}
	if resp.Removed > 0 {
		fmt.Fprintf(&b, "  Removed: %s\n", plural(int(resp.Removed), "entry"))
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "y") {
		return humanize.Comma(int64(n)) + " " + strings.TrimSuffix(noun, "y") + "ies"
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}
