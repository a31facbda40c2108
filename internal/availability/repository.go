package availability

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"gymsched/internal/apperr"
	"gymsched/internal/timeutil"
)

var ErrAvailabilityNotFound = errors.New("availability not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FetchAvailability(ctx context.Context, trainerID int) ([]WeekdayAvailability, error) {
	query := `
		SELECT trainer_id, weekday, slots, note, updated_at
		FROM trainer_availability
		WHERE trainer_id = $1
	`

	var days []WeekdayAvailability
	err := r.db.SelectContext(ctx, &days, query, trainerID)
	if err != nil {
		return nil, err
	}

	return days, nil
}

func (r *repository) ReplaceAvailability(ctx context.Context, trainerID int, weekday timeutil.Weekday, slots Slots, note string) error {
	query := `
		INSERT INTO trainer_availability (trainer_id, weekday, slots, note, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (trainer_id, weekday)
		DO UPDATE SET slots = EXCLUDED.slots, note = EXCLUDED.note, updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, trainerID, string(weekday), slots, note)
	return err
}

func (r *repository) DeleteAvailability(ctx context.Context, trainerID int, weekday timeutil.Weekday) error {
	query := `
		DELETE FROM trainer_availability
		WHERE trainer_id = $1 AND weekday = $2
	`

	result, err := r.db.ExecContext(ctx, query, trainerID, string(weekday))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return errors.Join(ErrAvailabilityNotFound, apperr.ErrNotFound)
	}

	return nil
}
