package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gymsched/internal/apperr"
	"gymsched/internal/timeutil"
)

// redisRecord is the hash value stored under availability:<trainer> / <weekday>.
type redisRecord struct {
	Slots     Slots     `json:"slots"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

type redisRepository struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRedisRepository(rdb *redis.Client) Repository {
	return &redisRepository{redis: rdb, now: time.Now}
}

func availabilityKey(trainerID int) string {
	return fmt.Sprintf("availability:%d", trainerID)
}

func (r *redisRepository) FetchAvailability(ctx context.Context, trainerID int) ([]WeekdayAvailability, error) {
	fields, err := r.redis.HGetAll(ctx, availabilityKey(trainerID)).Result()
	if err != nil {
		return nil, err
	}

	days := make([]WeekdayAvailability, 0, len(fields))
	for field, raw := range fields {
		weekday, err := timeutil.ParseWeekday(field)
		if err != nil {
			return nil, fmt.Errorf("availability:%d: %w", trainerID, err)
		}

		var rec redisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("availability:%d/%s: %w", trainerID, weekday, err)
		}
		if rec.Slots == nil {
			rec.Slots = Slots{}
		}

		days = append(days, WeekdayAvailability{
			TrainerID: trainerID,
			Weekday:   weekday,
			Slots:     rec.Slots,
			Note:      rec.Note,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	return days, nil
}

func (r *redisRepository) ReplaceAvailability(ctx context.Context, trainerID int, weekday timeutil.Weekday, slots Slots, note string) error {
	if slots == nil {
		slots = Slots{}
	}
	data, err := json.Marshal(redisRecord{Slots: slots, Note: note, UpdatedAt: r.now().UTC()})
	if err != nil {
		return err
	}

	return r.redis.HSet(ctx, availabilityKey(trainerID), string(weekday), string(data)).Err()
}

func (r *redisRepository) DeleteAvailability(ctx context.Context, trainerID int, weekday timeutil.Weekday) error {
	removed, err := r.redis.HDel(ctx, availabilityKey(trainerID), string(weekday)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return errors.Join(ErrAvailabilityNotFound, apperr.ErrNotFound)
	}
	return nil
}
