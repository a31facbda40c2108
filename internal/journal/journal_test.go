package journal

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymsched/internal/apperr"
	"gymsched/internal/events"
	"gymsched/internal/logger"
	"gymsched/internal/metrics"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func newTestJournal(rdb *redis.Client, buffer int) *Journal {
	j := New(rdb, buffer)
	j.retryDelay = 0
	return j
}

func sampleEvent(trainerID int) events.Event {
	return events.Event{
		Kind:      events.AvailabilityChanged,
		TrainerID: trainerID,
		Weekdays:  []string{"Monday"},
		At:        time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
}

func TestAppendTrimsToMaxEntries(t *testing.T) {
	db, mock := redismock.NewClientMock()
	j := newTestJournal(db, 1)

	mock.Regexp().ExpectLPush("calendar:journal:7", `.*`).SetVal(1)
	mock.ExpectLTrim("calendar:journal:7", 0, MaxEntries-1).SetVal("OK")

	require.NoError(t, j.Append(context.Background(), sampleEvent(7)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteRetriesThenParksFailedEvent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	j := newTestJournal(db, 1)
	metrics.JournalWritesTotal.Reset()

	for i := 0; i < maxTries; i++ {
		mock.Regexp().ExpectLPush("calendar:journal:7", `.*`).SetErr(assert.AnError)
	}
	mock.Regexp().ExpectLPush(failedKey, `.*`).SetVal(1)

	j.write(context.Background(), sampleEvent(7))

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, float64(maxTries-1), testutil.ToFloat64(metrics.JournalWritesTotal.WithLabelValues("retry")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JournalWritesTotal.WithLabelValues("failed")))
}

func TestNotifyDropsWhenFull(t *testing.T) {
	db, _ := redismock.NewClientMock()
	j := newTestJournal(db, 1)
	metrics.JournalWritesTotal.Reset()

	j.Notify(sampleEvent(1))
	j.Notify(sampleEvent(2))

	assert.Len(t, j.queue, 1)
	assert.Equal(t, 1, (<-j.queue).TrainerID)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JournalWritesTotal.WithLabelValues("dropped")))
}

func TestStartDrainsQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	j := newTestJournal(db, 4)

	mock.Regexp().ExpectLPush("calendar:journal:3", `.*`).SetVal(1)
	mock.ExpectLTrim("calendar:journal:3", 0, MaxEntries-1).SetVal("OK")

	bus := events.NewBus()
	unsubscribe := bus.Subscribe(j.Notify)
	defer unsubscribe()
	bus.Notify(sampleEvent(3))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(j.queue) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartFlushesBufferOnShutdown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	j := newTestJournal(db, 4)

	for _, id := range []int{1, 2} {
		mock.Regexp().ExpectLPush(Key(id), `.*`).SetVal(1)
		mock.ExpectLTrim(Key(id), 0, MaxEntries-1).SetVal("OK")
	}

	j.Notify(sampleEvent(1))
	j.Notify(sampleEvent(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Start(ctx)

	assert.Empty(t, j.queue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartDropsWhatCannotFlushInTime(t *testing.T) {
	db, mock := redismock.NewClientMock()
	j := newTestJournal(db, 4)
	j.drainTimeout = 0
	metrics.JournalWritesTotal.Reset()

	j.Notify(sampleEvent(1))
	j.Notify(sampleEvent(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Start(ctx)

	assert.Empty(t, j.queue)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.JournalWritesTotal.WithLabelValues("dropped")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	j := newTestJournal(db, 1)

	newest, err := json.Marshal(events.Event{Kind: events.AppointmentStatusChange, TrainerID: 7, AppointmentID: 12, Status: "CONFIRMED"})
	require.NoError(t, err)
	older, err := json.Marshal(sampleEvent(7))
	require.NoError(t, err)

	mock.ExpectLRange("calendar:journal:7", 0, 2).SetVal([]string{string(newest), `{broken`, string(older)})

	list, err := j.Recent(context.Background(), 7, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, events.AppointmentStatusChange, list[0].Kind)
	assert.Equal(t, 12, list[0].AppointmentID)
	assert.Equal(t, events.AvailabilityChanged, list[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	j := newTestJournal(db, 1)

	_, err := j.Recent(context.Background(), 7, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = j.Recent(context.Background(), 7, MaxEntries+1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	mock.ExpectLRange("calendar:journal:7", 0, DefaultLimit-1).SetErr(assert.AnError)
	_, err = j.Recent(context.Background(), 7, DefaultLimit)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.NoError(t, mock.ExpectationsWereMet())
}
