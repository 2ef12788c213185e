// Package report renders GitHubStats for terminal output.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/portfolio-stats/internal/domain"
)

// ActivitySummary describes the distribution of daily commit counts.
type ActivitySummary struct {
	ActiveDays   int
	MeanPerDay   float64
	MedianPerDay float64
	P90PerDay    float64
	MaxPerDay    float64
	// BusiestDay is the earliest day with MaxPerDay commits, empty without commits.
	BusiestDay string
}

// LanguageShare is a language's byte count and its share of all bytes.
type LanguageShare struct {
	Name    string
	Bytes   int
	Percent float64
}

// Summarize computes the daily commit distribution of activity.
func Summarize(activity domain.CommitActivity) (ActivitySummary, error) {
	var summary ActivitySummary
	if len(activity) == 0 {
		return summary, nil
	}

	data := make(stats.Float64Data, len(activity))
	for i, day := range activity {
		data[i] = float64(day.Count)
		if day.Count > 0 {
			summary.ActiveDays++
		}
	}

	var err error
	if summary.MeanPerDay, err = stats.Mean(data); err != nil {
		return summary, fmt.Errorf("failed to compute mean: %w", err)
	}
	if summary.MedianPerDay, err = stats.Median(data); err != nil {
		return summary, fmt.Errorf("failed to compute median: %w", err)
	}
	if summary.MaxPerDay, err = stats.Max(data); err != nil {
		return summary, fmt.Errorf("failed to compute max: %w", err)
	}
	// Percentile is undefined for very short series; the max stands in.
	if summary.P90PerDay, err = stats.Percentile(data, 90); err != nil {
		summary.P90PerDay = summary.MaxPerDay
	}

	if summary.MaxPerDay > 0 {
		for _, day := range activity {
			if float64(day.Count) == summary.MaxPerDay {
				summary.BusiestDay = day.Date
				break
			}
		}
	}
	return summary, nil
}

// RankLanguages orders languages by bytes, largest first, ties by name.
func RankLanguages(languages domain.LanguageStats) []LanguageShare {
	total := 0
	for _, bytes := range languages {
		total += bytes
	}

	shares := make([]LanguageShare, 0, len(languages))
	for name, bytes := range languages {
		share := LanguageShare{Name: name, Bytes: bytes}
		if total > 0 {
			share.Percent = float64(bytes) / float64(total) * 100
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Bytes != shares[j].Bytes {
			return shares[i].Bytes > shares[j].Bytes
		}
		return shares[i].Name < shares[j].Name
	})
	return shares
}

// WriteText writes a human-readable report of s to w.
func WriteText(w io.Writer, username string, s *domain.GitHubStats) error {
	summary, err := Summarize(s.CommitActivity)
	if err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgGreen)

	heading.Fprintf(w, "GitHub stats for %s\n", username)
	label.Fprint(w, "  Repositories: ")
	fmt.Fprintf(w, "%d\n", s.TotalRepos)
	label.Fprint(w, "  Commits:      ")
	fmt.Fprintf(w, "%d over %d days\n", s.TotalCommits, len(s.CommitActivity))

	fmt.Fprintln(w)
	heading.Fprintln(w, "Languages")
	ranked := RankLanguages(s.Languages)
	if len(ranked) == 0 {
		color.New(color.FgYellow).Fprintln(w, "  none found")
	}
	for _, lang := range ranked {
		fmt.Fprintf(w, "  %-20s %12d B %6.1f%%\n", lang.Name, lang.Bytes, lang.Percent)
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "Activity")
	fmt.Fprintf(w, "  Active days: %d\n", summary.ActiveDays)
	fmt.Fprintf(w, "  Per day:     mean %.2f, median %.0f, p90 %.0f, max %.0f\n",
		summary.MeanPerDay, summary.MedianPerDay, summary.P90PerDay, summary.MaxPerDay)
	if summary.BusiestDay != "" {
		fmt.Fprintf(w, "  Busiest day: %s\n", summary.BusiestDay)
	}
	return nil
}
