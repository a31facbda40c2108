// Package journal keeps a short Redis history of calendar invalidation
// events per trainer so reconnecting clients can catch up on what they missed.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gymsched/internal/apperr"
	"gymsched/internal/events"
	"gymsched/internal/logger"
	"gymsched/internal/metrics"
)

const (
	MaxEntries   = 100
	DefaultLimit = 20

	failedKey = "calendar:journal:failed"
	maxTries  = 3
)

type Journal struct {
	redis        *redis.Client
	queue        chan events.Event
	retryDelay   time.Duration
	drainTimeout time.Duration
}

func New(rdb *redis.Client, buffer int) *Journal {
	if buffer <= 0 {
		buffer = 256
	}
	return &Journal{
		redis:        rdb,
		queue:        make(chan events.Event, buffer),
		retryDelay:   2 * time.Second,
		drainTimeout: 5 * time.Second,
	}
}

func Key(trainerID int) string {
	return fmt.Sprintf("calendar:journal:%d", trainerID)
}

// Notify queues an event for the worker. It never blocks; when the buffer is
// full the event is dropped and counted.
func (j *Journal) Notify(e events.Event) {
	select {
	case j.queue <- e:
	default:
		metrics.RecordJournal("dropped")
		logger.Warn("journal buffer full, dropping event", "trainer_id", e.TrainerID, "kind", e.Kind)
	}
}

// Start writes buffered events to Redis until ctx is cancelled, then flushes
// what is still buffered within drainTimeout.
func (j *Journal) Start(ctx context.Context) {
	logger.Info("Calendar journal started")

	for {
		if ctx.Err() != nil {
			j.drain(ctx)
			return
		}
		select {
		case <-ctx.Done():
		case e := <-j.queue:
			j.write(ctx, e)
		}
	}
}

func (j *Journal) drain(ctx context.Context) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.drainTimeout)
	defer cancel()

	written, dropped := 0, 0
	for {
		select {
		case e := <-j.queue:
			if dctx.Err() != nil {
				metrics.RecordJournal("dropped")
				dropped++
				continue
			}
			j.write(dctx, e)
			written++
		default:
			logger.Info("Calendar journal stopped", "flushed", written, "dropped", dropped)
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, e events.Event) {
	for tries := 1; ; tries++ {
		err := j.Append(ctx, e)
		if err == nil {
			metrics.RecordJournal("ok")
			return
		}

		if tries >= maxTries {
			logger.Errorf("Journal write for trainer %d failed after %d attempts: %v", e.TrainerID, tries, err)
			metrics.RecordJournal("failed")
			j.saveFailed(ctx, e, err)
			return
		}

		metrics.RecordJournal("retry")
		logger.WithError(err).Warn("journal write failed, retrying", "trainer_id", e.TrainerID, "attempt", tries)

		select {
		case <-ctx.Done():
			return
		case <-time.After(j.retryDelay):
		}
	}
}

// Append stores one event at the head of the trainer's journal and trims it
// to MaxEntries.
func (j *Journal) Append(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal event: %w", err)
	}

	key := Key(e.TrainerID)
	if err := j.redis.LPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return j.redis.LTrim(ctx, key, 0, MaxEntries-1).Err()
}

// Recent returns up to limit events for the trainer, newest first.
func (j *Journal) Recent(ctx context.Context, trainerID, limit int) ([]events.Event, error) {
	if limit < 1 || limit > MaxEntries {
		return nil, apperr.Validation("limit must be between 1 and %d", MaxEntries)
	}

	raw, err := j.redis.LRange(ctx, Key(trainerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, apperr.Upstream("read journal", err)
	}

	out := make([]events.Event, 0, len(raw))
	for _, item := range raw {
		var e events.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			logger.Warn("skipping bad journal entry", "trainer_id", trainerID, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (j *Journal) saveFailed(ctx context.Context, e events.Event, cause error) {
	failed := map[string]interface{}{
		"event": e,
		"error": cause.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	if err := j.redis.LPush(context.WithoutCancel(ctx), failedKey, data).Err(); err != nil {
		logger.Errorf("Could not record failed journal event: %v", err)
	}
}
