package summary

import (
	"fmt"
	"math"

	"github.com/robotomize/go-xunit-slack/internal/xunit"
)

// Summary is the aggregate of all parsed reports of a run.
type Summary struct {
	Files   int     `json:"files"`
	Total   int     `json:"total"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Broken  int     `json:"broken"`
	Elapsed float64 `json:"elapsed"`
	// HasIssues is set when at least one report has failed or errored tests.
	HasIssues bool `json:"hasIssues"`
}

// Aggregate folds reports into a Summary. No reports give a zero Summary.
func Aggregate(reports ...xunit.Report) Summary {
	var s Summary
	for _, r := range reports {
		s.Add(r)
	}

	return s
}

// Add folds a single report into s.
func (s *Summary) Add(r xunit.Report) {
	s.Files++
	s.Total += r.Tests
	s.Passed += r.Tests - r.Failures - r.Errors
	s.Failed += r.Failures
	s.Broken += r.Errors
	s.Elapsed += r.Time
	s.HasIssues = s.HasIssues || r.HasIssues()
}

// FormatElapsed renders the elapsed time as HH:MM:SS.
func (s Summary) FormatElapsed() string {
	return FormatElapsed(s.Elapsed)
}

// FormatElapsed renders seconds as HH:MM:SS. Fractions of a second are dropped
// and hours keep counting past 24.
func FormatElapsed(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	total := int64(seconds)

	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
