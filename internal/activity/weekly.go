package activity

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/curator/internal/apperr"
)

// Weekly is the summary of one Monday..Sunday week.
type Weekly struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Year             int       `json:"year"`
	Week             int       `json:"week"`
	Days             []Entry   `json:"days"`
	TotalDays        int       `json:"total_days"`
	TotalSuggestions int       `json:"total_suggestions"`
	TotalCompleted   int       `json:"total_completed"`
	AvgSuggestions   float64   `json:"avg_suggestions_per_day"`
	AvgCompleted     float64   `json:"avg_completed_per_day"`
	// Trend is the first-half minus second-half average of daily
	// suggestions. Positive means fewer suggestions later in the week.
	Trend float64 `json:"improvement_trend"`
}

// LastWeek returns the Monday and Sunday of the week before now's week.
func LastWeek(now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sinceMonday := (int(today.Weekday()) + 6) % 7
	thisMonday := today.AddDate(0, 0, -sinceMonday)
	lastMonday := thisMonday.AddDate(0, 0, -7)
	return lastMonday, lastMonday.AddDate(0, 0, 6)
}

// Summarize computes the weekly summary of entries falling in the week
// before now.
func Summarize(entries []Entry, now time.Time) Weekly {
	start, end := LastWeek(now)
	year, week := start.ISOWeek()
	w := Weekly{Start: start, End: end, Year: year, Week: week, Days: []Entry{}}

	for _, e := range entries {
		d := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, now.Location())
		if d.Before(start) || d.After(end) {
			continue
		}
		w.Days = append(w.Days, e)
	}
	sort.SliceStable(w.Days, func(i, j int) bool { return w.Days[i].Date.Before(w.Days[j].Date) })

	w.TotalDays = len(w.Days)
	if w.TotalDays == 0 {
		return w
	}
	for _, d := range w.Days {
		w.TotalSuggestions += d.Suggestions
		w.TotalCompleted += d.Completed
	}
	w.AvgSuggestions = float64(w.TotalSuggestions) / float64(w.TotalDays)
	w.AvgCompleted = float64(w.TotalCompleted) / float64(w.TotalDays)
	if w.TotalDays > 1 {
		half := w.TotalDays / 2
		w.Trend = avgSuggestions(w.Days[:half]) - avgSuggestions(w.Days[half:])
	}
	return w
}

func avgSuggestions(days []Entry) float64 {
	if len(days) == 0 {
		return 0
	}
	total := 0
	for _, d := range days {
		total += d.Suggestions
	}
	return float64(total) / float64(len(days))
}

var weeklyNameRe = regexp.MustCompile(`^Weekly_Summary_\d{4}-W\d{2}\.md$`)

// IsWeeklySummary reports whether p names a file written by WriteWeekly.
func IsWeeklySummary(p string) bool {
	return weeklyNameRe.MatchString(path.Base(p))
}

// Filename returns the summary file name, e.g. Weekly_Summary_2026-W41.md.
func (w Weekly) Filename() string {
	return fmt.Sprintf("Weekly_Summary_%d-W%02d.md", w.Year, w.Week)
}

// Weekly summarises the week before now from the log.
func (l *Log) Weekly(now time.Time) (Weekly, error) {
	entries, err := l.Entries()
	if err != nil {
		return Weekly{}, err
	}
	return Summarize(entries, now.In(l.loc)), nil
}

// WriteWeekly renders last week's summary into the vault and returns its
// path. A week without entries yields apperr.ErrNotFound.
func (l *Log) WriteWeekly(now time.Time) (string, Weekly, error) {
	w, err := l.Weekly(now)
	if err != nil {
		return "", w, err
	}
	if w.TotalDays == 0 {
		return "", w, fmt.Errorf("activity: no entries between %s and %s: %w",
			w.Start.Format(dateLayout), w.End.Format(dateLayout), apperr.ErrNotFound)
	}
	var b strings.Builder
	if err := RenderWeekly(&b, w, now); err != nil {
		return "", w, err
	}
	name := w.Filename()
	if dir := dirOf(l.file); dir != "" {
		name = dir + "/" + name
	}
	if err := l.store.Write(name, []byte(b.String())); err != nil {
		return "", w, err
	}
	return name, w, nil
}

func dirOf(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

// RenderWeekly writes w as markdown.
func RenderWeekly(out io.Writer, w Weekly, generated time.Time) error {
	bw := bufio.NewWriter(out)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	p("# Weekly Summary %d-W%02d\n\n", w.Year, w.Week)
	p("**Generated:** %s  \n", generated.Format("2006-01-02 15:04:05"))
	p("**Period:** %s ~ %s  \n", w.Start.Format(dateLayout), w.End.Format(dateLayout))
	p("**Days logged:** %d\n\n---\n\n", w.TotalDays)

	p("## Totals\n\n")
	p("| Metric | Value |\n|------|-----|\n")
	p("| Suggestions | %d |\n", w.TotalSuggestions)
	p("| Completed | %d |\n", w.TotalCompleted)
	p("| Suggestions per day | %.1f |\n", w.AvgSuggestions)
	p("| Completed per day | %.1f |\n\n---\n\n", w.AvgCompleted)

	p("## Trend\n\n```\n")
	p("first half:  %.1f/day\n", w.AvgSuggestions+w.Trend/2)
	p("second half: %.1f/day\n", w.AvgSuggestions-w.Trend/2)
	p("change:      %+.1f/day\n```\n\n", w.Trend)
	switch {
	case w.Trend > 0:
		p("Suggestions fell by %.1f/day: vault quality is improving.\n", w.Trend)
	case w.Trend < 0:
		p("Suggestions rose by %.1f/day: new problems appeared or the rules got stricter.\n", -w.Trend)
	default:
		p("Suggestions held steady.\n")
	}

	p("\n---\n\n## Days\n\n")
	for _, d := range w.Days {
		p("### Day %d (%s)\n\n", d.Day, d.Date.Format(dateLayout))
		p("- Suggestions: %d\n", d.Suggestions)
		p("- Completed: %d\n", d.Completed)
		if d.Pending > 0 {
			p("- Pending: %d\n", d.Pending)
		}
		p("\n")
	}

	p("---\n\n## Next week\n\n")
	p("- [ ] Handle P1 items first\n")
	p("- [ ] Fix recurring patterns at the source\n")
	return bw.Flush()
}
