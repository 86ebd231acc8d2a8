// Package logbook holds the read side of the dive log: filtering the
// overview and computing fee settlements.
package logbook

import (
	"sort"
	"time"

	"Divelog/models"
)

// Filter selects log entries. Zero bounds and empty names match everything.
// From and To are inclusive; once either is set, entries without a date are
// left out.
type Filter struct {
	From  time.Time
	To    time.Time
	Diver string
	Site  string
}

func (f Filter) inRange(e models.LogEntry) bool {
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	if e.Date.IsZero() {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(models.DateOnly(f.From)) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(models.DateOnly(f.To)) {
		return false
	}
	return true
}

func (f Filter) Match(e models.LogEntry) bool {
	if !f.inRange(e) {
		return false
	}
	if f.Diver != "" && e.Diver != f.Diver {
		return false
	}
	if f.Site != "" && e.Site != f.Site {
		return false
	}
	return true
}

// Apply returns the matching entries ordered by date, site and diver.
func Apply(entries []models.LogEntry, f Filter) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	Sort(out)
	return out
}

// Sort orders entries by date, site and diver, keeping file order for ties.
func Sort(entries []models.LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Site != b.Site {
			return a.Site < b.Site
		}
		return a.Diver < b.Diver
	})
}

// DateSpan returns the first and last date in the log. Without any dated
// entry both are today.
func DateSpan(entries []models.LogEntry, today time.Time) (first, last time.Time) {
	for _, e := range entries {
		if e.Date.IsZero() {
			continue
		}
		if first.IsZero() || e.Date.Before(first) {
			first = e.Date
		}
		if last.IsZero() || e.Date.After(last) {
			last = e.Date
		}
	}
	if first.IsZero() {
		today = models.DateOnly(today)
		return today, today
	}
	return first, last
}

func DistinctDivers(entries []models.LogEntry) []string {
	return distinct(entries, func(e models.LogEntry) string { return e.Diver })
}

func DistinctSites(entries []models.LogEntry) []string {
	return distinct(entries, func(e models.LogEntry) string { return e.Site })
}

func distinct(entries []models.LogEntry, field func(models.LogEntry) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		v := field(e)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
