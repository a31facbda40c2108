package availability

import (
	"context"

	"gymsched/internal/timeutil"
)

// Repository is the per-weekday availability store. Every mutation replaces
// the whole slot list of one weekday; there is no compare-and-swap, so two
// concurrent writers to the same weekday can lose an update.
type Repository interface {
	FetchAvailability(ctx context.Context, trainerID int) ([]WeekdayAvailability, error)
	ReplaceAvailability(ctx context.Context, trainerID int, weekday timeutil.Weekday, slots Slots, note string) error
	DeleteAvailability(ctx context.Context, trainerID int, weekday timeutil.Weekday) error
}
