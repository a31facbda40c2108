package appointment

import (
	"context"
	"time"
)

// Repository is the external session source.
type Repository interface {
	// FetchSessions returns the trainer's appointments whose date lies in [start, end).
	FetchSessions(ctx context.Context, trainerID int, start, end time.Time) ([]Appointment, error)
	GetAppointment(ctx context.Context, id int) (*Appointment, error)
	// SetAppointmentStatus moves id from `from` to `to` only if it is still in `from`.
	SetAppointmentStatus(ctx context.Context, id int, from, to Status) (*Appointment, error)
}
