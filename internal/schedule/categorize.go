// Package schedule splits dated items into past, current and future buckets
// by calendar day.
package schedule

import (
	"sort"
	"time"
)

// Buckets holds items grouped by their calendar day relative to today.
type Buckets[T any] struct {
	Past    []T `json:"pastMeetings"`
	Current []T `json:"currentMeetings"`
	Future  []T `json:"futureMeetings"`
}

// Len is the number of items across all buckets.
func (b Buckets[T]) Len() int { return len(b.Past) + len(b.Current) + len(b.Future) }

// StartOfDay truncates t to midnight in loc. A nil loc means time.Local.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Categorize compares the calendar day returned by dateOf with the calendar
// day of now, both taken in loc. Time of day is ignored. Items keep a stable
// ascending date order inside each bucket.
func Categorize[T any](items []T, dateOf func(T) time.Time, now time.Time, loc *time.Location) Buckets[T] {
	today := StartOfDay(now, loc)
	out := Buckets[T]{Past: []T{}, Current: []T{}, Future: []T{}}

	type dated struct {
		day  time.Time
		item T
	}
	sorted := make([]dated, 0, len(items))
	for _, it := range items {
		sorted = append(sorted, dated{day: StartOfDay(dateOf(it), loc), item: it})
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].day.Before(sorted[j].day) })

	for _, d := range sorted {
		switch {
		case d.day.Before(today):
			out.Past = append(out.Past, d.item)
		case d.day.Equal(today):
			out.Current = append(out.Current, d.item)
		default:
			out.Future = append(out.Future, d.item)
		}
	}
	return out
}
