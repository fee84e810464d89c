package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the format of DigestJSON.Date.
const DateLayout = "2006-01-02"

// Violation describes one broken producer invariant.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// CheckError collects every violation found in a digest.
type CheckError struct {
	Date       string
	Violations []Violation
}

func (e *CheckError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("digest %q is malformed: %s", e.Date, strings.Join(parts, "; "))
}

// Check verifies the invariants a producer is expected to uphold. It returns
// nil or a *CheckError.
func Check(d DigestJSON) error {
	var vs []Violation
	add := func(field, format string, args ...any) {
		vs = append(vs, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if d.Date == "" {
		add("date", "is empty")
	} else if _, err := time.Parse(DateLayout, d.Date); err != nil {
		add("date", "must be formatted as %s, got %q", DateLayout, d.Date)
	}

	s := d.Stats
	counters := []struct {
		name  string
		value int
	}{
		{"stats.totalFeeds", s.TotalFeeds},
		{"stats.successFeeds", s.SuccessFeeds},
		{"stats.totalArticles", s.TotalArticles},
		{"stats.filteredArticles", s.FilteredArticles},
		{"stats.hours", s.Hours},
		{"stats.selectedCount", s.SelectedCount},
	}
	for _, c := range counters {
		if c.value < 0 {
			add(c.name, "is negative (%d)", c.value)
		}
	}
	if s.SuccessFeeds > s.TotalFeeds {
		add("stats.successFeeds", "%d exceeds totalFeeds %d", s.SuccessFeeds, s.TotalFeeds)
	}
	if s.FilteredArticles > s.TotalArticles {
		add("stats.filteredArticles", "%d exceeds totalArticles %d", s.FilteredArticles, s.TotalArticles)
	}
	if s.SelectedCount > s.FilteredArticles {
		add("stats.selectedCount", "%d exceeds filteredArticles %d", s.SelectedCount, s.FilteredArticles)
	}
	if s.SelectedCount != len(d.Articles) {
		add("stats.selectedCount", "is %d but digest holds %d articles", s.SelectedCount, len(d.Articles))
	}

	for i, a := range d.Articles {
		prefix := fmt.Sprintf("articles[%d].", i)
		if strings.TrimSpace(a.Title) == "" {
			add(prefix+"title", "is empty")
		}
		if strings.TrimSpace(a.Link) == "" {
			add(prefix+"link", "is empty")
		}
		if !a.Category.Valid() {
			add(prefix+"category", "unknown value %q", a.Category)
		}
		scores := []struct {
			name  string
			value float64
		}{
			{"score", a.Score},
			{"scoreBreakdown.relevance", a.ScoreBreakdown.Relevance},
			{"scoreBreakdown.quality", a.ScoreBreakdown.Quality},
			{"scoreBreakdown.timeliness", a.ScoreBreakdown.Timeliness},
		}
		for _, sc := range scores {
			if math.IsNaN(sc.value) || math.IsInf(sc.value, 0) {
				add(prefix+sc.name, "is not a finite number")
			}
		}
	}

	if len(vs) == 0 {
		return nil
	}
	return &CheckError{Date: d.Date, Violations: vs}
}
