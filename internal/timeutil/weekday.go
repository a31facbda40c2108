package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the English weekday name used on the wire and as storage key.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// AllWeekdays is the canonical Monday-first ordering.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayIndex = map[Weekday]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
	Saturday:  5,
	Sunday:    6,
}

func (w Weekday) Valid() bool {
	_, ok := weekdayIndex[w]
	return ok
}

// Index is the Monday-first position of w, or -1 when w is unknown.
func (w Weekday) Index() int {
	if i, ok := weekdayIndex[w]; ok {
		return i
	}
	return -1
}

// ParseWeekday is case-insensitive on input and returns the canonical name.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	for _, w := range AllWeekdays {
		if strings.EqualFold(string(w), s) {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

func WeekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	}
	return Sunday
}

// SortWeekdays dedupes ws and orders it Monday..Sunday. Unknown names are dropped.
func SortWeekdays(ws []Weekday) []Weekday {
	seen := make(map[Weekday]struct{}, len(ws))
	for _, w := range ws {
		if w.Valid() {
			seen[w] = struct{}{}
		}
	}
	out := make([]Weekday, 0, len(seen))
	for _, w := range AllWeekdays {
		if _, ok := seen[w]; ok {
			out = append(out, w)
		}
	}
	return out
}

// WeekdayKeys returns the distinct weekdays touched by the inclusive date span
// [start, end]. The walk stops once all seven are found.
func WeekdayKeys(start, end time.Time) []Weekday {
	from := StartOfDay(start)
	to := StartOfDay(end)
	if to.Before(from) {
		return nil
	}

	seen := make([]Weekday, 0, 7)
	found := make(map[Weekday]struct{}, 7)
	for d := from; !d.After(to) && len(found) < 7; d = d.AddDate(0, 0, 1) {
		w := WeekdayOf(d)
		if _, ok := found[w]; ok {
			continue
		}
		found[w] = struct{}{}
		seen = append(seen, w)
	}
	return SortWeekdays(seen)
}
