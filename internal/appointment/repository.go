package appointment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"gymsched/internal/apperr"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStatusChanged       = errors.New("appointment status changed concurrently")
)

const appointmentColumns = `id, member_id, member_name, trainer_id, session_date, start_time, end_time,
	status, type_label, location, note, participants, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FetchSessions(ctx context.Context, trainerID int, start, end time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE trainer_id = $1 AND session_date >= $2 AND session_date < $3
		ORDER BY session_date, start_time, id
	`

	var sessions []Appointment
	err := r.db.SelectContext(ctx, &sessions, query, trainerID, start, end)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *repository) GetAppointment(ctx context.Context, id int) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`

	var a Appointment
	err := r.db.GetContext(ctx, &a, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Join(ErrAppointmentNotFound, apperr.ErrNotFound)
		}
		return nil, err
	}

	return &a, nil
}

func (r *repository) SetAppointmentStatus(ctx context.Context, id int, from, to Status) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + appointmentColumns

	var a Appointment
	err := r.db.GetContext(ctx, &a, query, string(to), id, string(from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Join(ErrStatusChanged, apperr.ErrInvalidTransition)
		}
		return nil, err
	}

	return &a, nil
}
