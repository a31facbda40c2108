package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the bucket key format used for calendar days.
const DateLayout = "2006-01-02"

var (
	ErrInvalidClock    = errors.New("time must be HH:MM in 24h format")
	ErrInvalidViewMode = errors.New("view must be one of day, week, month")
	ErrInvalidWeekday  = errors.New("unknown weekday")
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewDay:
		return ViewDay, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}

// Range is a half-open [Start, End) interval of calendar time.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ValidClock reports whether s is a zero-padded 24h "HH:MM" string.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// ClockMinutes returns the minutes since midnight for an "HH:MM" string.
func ClockMinutes(s string) (int, error) {
	if !ValidClock(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return h*60 + m, nil
}

// Duration returns the minutes between start and end on the same day.
// Overnight ranges are not supported and yield 0.
func Duration(start, end string) (int, error) {
	s, err := ClockMinutes(start)
	if err != nil {
		return 0, err
	}
	e, err := ClockMinutes(end)
	if err != nil {
		return 0, err
	}
	if e <= s {
		return 0, nil
	}
	return e - s, nil
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RangeForView is the single source of truth for which dates a view covers.
// Weeks start on Sunday.
func RangeForView(ref time.Time, mode ViewMode) (Range, error) {
	day := StartOfDay(ref)
	switch mode {
	case ViewDay:
		return Range{Start: day, End: day.AddDate(0, 0, 1)}, nil
	case ViewWeek:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return Range{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case ViewMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return Range{Start: start, End: start.AddDate(0, 1, 0)}, nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrInvalidViewMode, mode)
}

// Days lists the midnight of every day in r.
func Days(r Range) []time.Time {
	var days []time.Time
	for d := StartOfDay(r.Start); d.Before(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// IsSameDay compares calendar dates, each in its own location.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts either a plain date or an RFC3339 date-time and returns
// local midnight of that calendar date.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}
