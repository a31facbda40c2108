package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymsched/internal/apperr"
	"gymsched/internal/timeutil"
)

func TestRedisFetchAvailability(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisRepository(db)

	mock.ExpectHGetAll("availability:5").SetVal(map[string]string{
		"Tuesday": `{"slots":[{"start_time":"07:00","end_time":"08:00","status":"RANH"}],"note":"","updated_at":"2026-01-05T10:00:00Z"}`,
		"Sunday":  `{"slots":null,"note":"rest","updated_at":"2026-01-05T10:00:00Z"}`,
	})

	days, err := repo.FetchAvailability(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, days, 2)

	byDay := map[timeutil.Weekday]WeekdayAvailability{}
	for _, d := range days {
		assert.Equal(t, 5, d.TrainerID)
		byDay[d.Weekday] = d
	}
	require.Len(t, byDay[timeutil.Tuesday].Slots, 1)
	assert.Equal(t, "07:00", byDay[timeutil.Tuesday].Slots[0].StartTime)
	assert.NotNil(t, byDay[timeutil.Sunday].Slots)
	assert.Equal(t, "rest", byDay[timeutil.Sunday].Note)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisFetchAvailabilityCorrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisRepository(db)

	mock.ExpectHGetAll("availability:5").SetVal(map[string]string{"Someday": `{}`})
	_, err := repo.FetchAvailability(context.Background(), 5)
	assert.Error(t, err)

	mock.ExpectHGetAll("availability:5").SetVal(map[string]string{"Monday": `{broken`})
	_, err = repo.FetchAvailability(context.Background(), 5)
	assert.Error(t, err)
}

func TestRedisReplaceAvailability(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := &redisRepository{
		redis: db,
		now:   func() time.Time { return time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) },
	}

	mock.ExpectHSet("availability:5", "Monday",
		`{"slots":[{"start_time":"09:00","end_time":"10:00","status":"BAN"}],"note":"n","updated_at":"2026-01-05T10:00:00Z"}`,
	).SetVal(1)

	err := repo.ReplaceAvailability(context.Background(), 5, timeutil.Monday,
		Slots{{StartTime: "09:00", EndTime: "10:00", Status: StatusBusy}}, "n")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReplaceAvailabilityError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisRepository(db)

	mock.Regexp().ExpectHSet("availability:5", "Monday", `.*`).SetErr(errors.New("READONLY"))

	err := repo.ReplaceAvailability(context.Background(), 5, timeutil.Monday, nil, "")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDeleteAvailability(t *testing.T) {
	db, mock := redismock.NewClientMock()
	repo := NewRedisRepository(db)

	mock.ExpectHDel("availability:5", "Monday").SetVal(1)
	require.NoError(t, repo.DeleteAvailability(context.Background(), 5, timeutil.Monday))

	mock.ExpectHDel("availability:5", "Monday").SetVal(0)
	err := repo.DeleteAvailability(context.Background(), 5, timeutil.Monday)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
