package quality

import (
	"sort"

	"github.com/starford/curator/internal/models"
)

// Grades.
const (
	GradeExcellent = "Excellent"
	GradeGood      = "Good"
	GradeFair      = "Fair"
	GradePoor      = "Poor"
)

// NoteReport is the quality result for one note.
type NoteReport struct {
	Path   string  `json:"path"`
	Title  string  `json:"title"`
	Score  int     `json:"score"`
	Grade  string  `json:"grade"`
	Issues []Issue `json:"issues"`
}

// Summary aggregates NoteReports across the vault.
type Summary struct {
	TotalFiles      int                     `json:"total_files"`
	FilesWithIssues int                     `json:"files_with_issues"`
	TotalIssues     int                     `json:"total_issues"`
	ByPriority      map[models.Priority]int `json:"issues_by_priority"`
	ByCategory      map[string]int          `json:"issues_by_category"`
	Grades          map[string]int          `json:"grade_distribution"`
	AverageScore    float64                 `json:"average_score"`
	Notes           []NoteReport            `json:"notes"`
}

// Score is 100 minus 15 per P1, 5 per P2 and 2 per P3 issue, floored at 0.
func Score(issues []Issue) int {
	score := 100
	for _, is := range issues {
		switch is.Priority {
		case models.P1:
			score -= 15
		case models.P2:
			score -= 5
		case models.P3:
			score -= 2
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

// Grade maps a score to its grade band.
func Grade(score int) string {
	switch {
	case score >= 90:
		return GradeExcellent
	case score >= 75:
		return GradeGood
	case score >= 60:
		return GradeFair
	default:
		return GradePoor
	}
}

// Report checks n and scores the result.
func (c *Checker) Report(n models.Note) NoteReport {
	issues := c.Check(n)
	if issues == nil {
		issues = []Issue{}
	}
	s := Score(issues)
	return NoteReport{
		Path:   n.Path,
		Title:  n.DisplayName(),
		Score:  s,
		Grade:  Grade(s),
		Issues: issues,
	}
}

// CheckAll reports every note and aggregates the totals. Notes are reported
// in path order.
func (c *Checker) CheckAll(notes []models.Note) Summary {
	sum := Summary{
		ByPriority: map[models.Priority]int{models.P1: 0, models.P2: 0, models.P3: 0},
		ByCategory: map[string]int{},
		Grades:     map[string]int{GradeExcellent: 0, GradeGood: 0, GradeFair: 0, GradePoor: 0},
		Notes:      make([]NoteReport, 0, len(notes)),
	}
	total := 0
	for _, n := range notes {
		r := c.Report(n)
		sum.Notes = append(sum.Notes, r)
		sum.TotalFiles++
		total += r.Score
		sum.Grades[r.Grade]++
		if len(r.Issues) > 0 {
			sum.FilesWithIssues++
		}
		for _, is := range r.Issues {
			sum.TotalIssues++
			sum.ByPriority[is.Priority]++
			sum.ByCategory[is.Category]++
		}
	}
	if sum.TotalFiles > 0 {
		sum.AverageScore = float64(total) / float64(sum.TotalFiles)
	}
	sort.Slice(sum.Notes, func(i, j int) bool { return sum.Notes[i].Path < sum.Notes[j].Path })
	return sum
}
