package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymsched/internal/apperr"
	"gymsched/internal/appointment"
	"gymsched/internal/availability"
	"gymsched/internal/colorizer"
	"gymsched/internal/timeutil"
)

type MockSessions struct{ mock.Mock }

func (m *MockSessions) FetchSessions(ctx context.Context, trainerID int, start, end time.Time) ([]appointment.Appointment, error) {
	args := m.Called(ctx, trainerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appointment.Appointment), args.Error(1)
}

type MockAvailability struct{ mock.Mock }

func (m *MockAvailability) FetchAvailability(ctx context.Context, trainerID int) ([]availability.WeekdayAvailability, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]availability.WeekdayAvailability), args.Error(1)
}

// Wednesday 7 January 2026, 08:30 local time.
var fixedNow = time.Date(2026, 1, 7, 8, 30, 0, 0, time.Local)

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func session(id int, day int, start, end string, status appointment.Status, label string) appointment.Appointment {
	return appointment.Appointment{
		ID:         id,
		MemberID:   100 + id,
		MemberName: fmt.Sprintf("Member %d", id),
		TrainerID:  4,
		Date:       time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		StartTime:  start,
		EndTime:    end,
		Status:     status,
		TypeLabel:  label,
	}
}

func setup(t *testing.T, sessions []appointment.Appointment, weekly []availability.WeekdayAvailability) (*service, *MockSessions) {
	t.Helper()
	src := new(MockSessions)
	avail := new(MockAvailability)
	src.On("FetchSessions", mock.Anything, 4, mock.Anything, mock.Anything).Return(sessions, nil)
	if weekly == nil {
		weekly = []availability.WeekdayAvailability{}
	}
	avail.On("FetchAvailability", mock.Anything, 4).Return(weekly, nil)
	return newService(src, avail, DefaultOptions(), clock(fixedNow)), src
}

func findRow(t *testing.T, day Day, hour int) HourRow {
	t.Helper()
	for _, r := range day.Rows {
		if r.Hour == hour {
			return r
		}
	}
	t.Fatalf("no row for hour %d on %s", hour, day.Date)
	return HourRow{}
}

func TestMaterializeWeekPlacesSessionInItsHourRow(t *testing.T) {
	svc, src := setup(t, []appointment.Appointment{
		session(1, 7, "10:00", "11:00", appointment.StatusConfirmed, "HIIT"),
	}, nil)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek})
	require.NoError(t, err)

	assert.Equal(t, "2026-01-04", vm.Start)
	assert.Equal(t, "2026-01-11", vm.End)
	require.Len(t, vm.Days, 7)
	assert.Equal(t, timeutil.Sunday, vm.Days[0].Weekday)

	wed := vm.Days[3]
	assert.Equal(t, "2026-01-07", wed.Date)
	assert.Equal(t, timeutil.Wednesday, wed.Weekday)
	assert.True(t, wed.IsToday)

	row := findRow(t, wed, 10)
	assert.Equal(t, "10:00", row.Label)
	require.Len(t, row.Events, 1)
	assert.Equal(t, 60, row.Events[0].Duration)
	assert.Equal(t, colorizer.ColorFor("HIIT"), row.Events[0].Color)

	for _, d := range vm.Days {
		total := 0
		for _, r := range d.Rows {
			total += len(r.Events)
		}
		if d.Date == wed.Date {
			assert.Equal(t, 1, total)
		} else {
			assert.Zero(t, total, d.Date)
		}
	}

	start := time.Date(2026, 1, 4, 0, 0, 0, 0, time.Local)
	src.AssertCalled(t, "FetchSessions", mock.Anything, 4,
		mock.MatchedBy(func(got time.Time) bool { return got.Equal(start) }),
		mock.MatchedBy(func(got time.Time) bool { return got.Equal(start.AddDate(0, 0, 7)) }))
	src.AssertNumberOfCalls(t, "FetchSessions", 1)
}

func TestMaterializeMarksTodayOnly(t *testing.T) {
	svc, _ := setup(t, []appointment.Appointment{
		session(1, 7, "09:00", "10:00", appointment.StatusPending, "Yoga"),
		session(2, 7, "17:00", "18:00", appointment.StatusConfirmed, "Boxing"),
		session(3, 8, "09:00", "10:00", appointment.StatusPending, "Yoga"),
	}, nil)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek})
	require.NoError(t, err)

	var today []string
	for _, d := range vm.Days {
		if d.IsToday {
			today = append(today, d.Date)
		}
	}
	assert.Equal(t, []string{"2026-01-07"}, today)
	assert.Equal(t, 3, vm.Summary.Total)
	assert.Equal(t, 2, vm.Summary.Today)
	require.NotNil(t, vm.Now)

	next, _ := setup(t, nil, nil)
	vm, err = next.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow.AddDate(0, 0, 7), View: timeutil.ViewWeek})
	require.NoError(t, err)
	for _, d := range vm.Days {
		assert.False(t, d.IsToday, d.Date)
	}
	assert.Nil(t, vm.Now)
}

func TestMaterializeLongSessionOccupiesOneRow(t *testing.T) {
	svc, _ := setup(t, []appointment.Appointment{
		session(1, 7, "09:15", "12:45", appointment.StatusConfirmed, "Strength"),
	}, nil)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewDay})
	require.NoError(t, err)
	require.Len(t, vm.Days, 1)

	assert.Len(t, findRow(t, vm.Days[0], 9).Events, 1)
	assert.Empty(t, findRow(t, vm.Days[0], 10).Events)
	assert.Empty(t, findRow(t, vm.Days[0], 11).Events)
	assert.Equal(t, 210, findRow(t, vm.Days[0], 9).Events[0].Duration)
}

func TestMaterializeHourRowsWidenForEarlyAndLateSessions(t *testing.T) {
	svc, _ := setup(t, []appointment.Appointment{
		session(1, 7, "05:00", "05:45", appointment.StatusConfirmed, "Swim"),
		session(2, 7, "22:30", "23:15", appointment.StatusPending, "Yoga"),
	}, nil)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewDay})
	require.NoError(t, err)

	assert.Equal(t, 5, vm.StartHour)
	assert.Equal(t, 23, vm.EndHour)
	require.Len(t, vm.Days[0].Rows, 18)
	assert.Equal(t, 5, vm.Days[0].Rows[0].Hour)
	assert.Len(t, findRow(t, vm.Days[0], 22).Events, 1)
}

func TestMaterializeMonthPreviewAndOverflow(t *testing.T) {
	var sessions []appointment.Appointment
	for i := 1; i <= 5; i++ {
		sessions = append(sessions, session(i, 15, fmt.Sprintf("%02d:00", 10+i), fmt.Sprintf("%02d:30", 10+i), appointment.StatusConfirmed, "Pilates"))
	}
	sessions = append(sessions, session(9, 20, "07:00", "08:00", appointment.StatusPending, "Boxing"))
	svc, _ := setup(t, sessions, nil)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewMonth})
	require.NoError(t, err)

	assert.Equal(t, "2026-01-01", vm.Start)
	assert.Equal(t, "2026-02-01", vm.End)
	require.Len(t, vm.Days, 31)
	assert.Nil(t, vm.Now)
	assert.Zero(t, vm.StartHour)

	day15 := vm.Days[14]
	assert.Equal(t, "2026-01-15", day15.Date)
	assert.Equal(t, 5, day15.Count)
	require.Len(t, day15.Preview, 3)
	assert.Equal(t, 2, day15.Overflow)
	assert.Equal(t, "11:00", day15.Preview[0].StartTime)
	assert.Nil(t, day15.Rows)

	day20 := vm.Days[19]
	assert.Equal(t, 1, day20.Count)
	assert.Zero(t, day20.Overflow)

	assert.Equal(t, 6, vm.Summary.Total)
	assert.Equal(t, 5, vm.Summary.ByStatus[appointment.StatusConfirmed])
	assert.Equal(t, 1, vm.Summary.ByStatus[appointment.StatusPending])
}

func TestMaterializeFilterKeepsFetchAndGrid(t *testing.T) {
	sessions := []appointment.Appointment{
		session(1, 7, "05:00", "06:00", appointment.StatusCancelled, "Swim"),
		session(2, 7, "10:00", "11:00", appointment.StatusConfirmed, "HIIT"),
		session(3, 8, "12:00", "13:00", appointment.StatusPending, "Yoga"),
	}
	sessions[2].MemberName = "Nguyen Van Hung"

	t.Run("By status", func(t *testing.T) {
		svc, _ := setup(t, sessions, nil)
		vm, err := svc.Materialize(context.Background(), Request{
			TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek,
			Filter: Filter{Statuses: []appointment.Status{appointment.StatusConfirmed}},
		})
		require.NoError(t, err)

		assert.Equal(t, 3, vm.Summary.Total)
		assert.Equal(t, 1, vm.Summary.Visible)
		assert.Equal(t, 5, vm.StartHour, "grid still covers filtered-out sessions")
		assert.Len(t, findRow(t, vm.Days[3], 10).Events, 1)
		assert.Empty(t, findRow(t, vm.Days[4], 12).Events)
	})

	t.Run("By member name query", func(t *testing.T) {
		svc, _ := setup(t, sessions, nil)
		vm, err := svc.Materialize(context.Background(), Request{
			TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek,
			Filter: Filter{Query: "  HUNG "},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, vm.Summary.Visible)
		assert.Len(t, findRow(t, vm.Days[4], 12).Events, 1)
	})

	t.Run("By type label query", func(t *testing.T) {
		svc, _ := setup(t, sessions, nil)
		vm, err := svc.Materialize(context.Background(), Request{
			TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek,
			Filter: Filter{Query: "hii"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, vm.Summary.Visible)
	})

	t.Run("Unknown status", func(t *testing.T) {
		svc, _ := setup(t, sessions, nil)
		_, err := svc.Materialize(context.Background(), Request{
			TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek,
			Filter: Filter{Statuses: []appointment.Status{"LATE"}},
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestMaterializeFreeBusySlots(t *testing.T) {
	weekly := []availability.WeekdayAvailability{{
		TrainerID: 4,
		Weekday:   timeutil.Wednesday,
		Note:      "Studio B",
		Slots: availability.Slots{
			{StartTime: "09:00", EndTime: "10:00", Status: availability.StatusFree},
			{StartTime: "10:00", EndTime: "11:00", Status: availability.StatusFree},
			{StartTime: "12:00", EndTime: "13:00", Status: availability.StatusBusy},
			{StartTime: "14:00", EndTime: "15:00", Status: availability.StatusOff},
			{StartTime: "16:00", EndTime: "17:00", Status: availability.StatusFree},
		},
	}}
	sessions := []appointment.Appointment{
		session(1, 7, "10:30", "11:30", appointment.StatusConfirmed, "HIIT"),
		session(2, 7, "16:00", "17:00", appointment.StatusCancelled, "Yoga"),
	}
	svc, _ := setup(t, sessions, weekly)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek})
	require.NoError(t, err)

	wed := vm.Days[3]
	assert.Equal(t, "Studio B", wed.Note)
	require.Len(t, wed.Slots, 5)
	assert.Equal(t, SlotFree, wed.Slots[0].State, "touching ends do not overlap")
	assert.Equal(t, SlotBooked, wed.Slots[1].State)
	assert.Equal(t, SlotBusy, wed.Slots[2].State)
	assert.Equal(t, SlotOff, wed.Slots[3].State)
	assert.Equal(t, SlotFree, wed.Slots[4].State, "cancelled sessions free the slot")

	assert.Empty(t, vm.Days[0].Slots)
	assert.NotNil(t, vm.Days[0].Slots)

	nextWed := time.Date(2026, 1, 14, 9, 0, 0, 0, time.Local)
	svc2, _ := setup(t, nil, weekly)
	vm, err = svc2.Materialize(context.Background(), Request{TrainerID: 4, Date: nextWed, View: timeutil.ViewDay})
	require.NoError(t, err)
	require.Len(t, vm.Days[0].Slots, 5)
	assert.Equal(t, SlotFree, vm.Days[0].Slots[1].State, "weekly template applies to every Wednesday")
}

func TestMaterializeNowMarker(t *testing.T) {
	t.Run("Offset from first row", func(t *testing.T) {
		svc, _ := setup(t, nil, nil)
		vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek})
		require.NoError(t, err)

		require.NotNil(t, vm.Now)
		assert.Equal(t, "2026-01-07", vm.Now.Date)
		assert.Equal(t, 150, vm.Now.Minutes)
		assert.InDelta(t, 150.0, vm.Now.Offset, 0.001)
	})

	t.Run("Scaled by row height", func(t *testing.T) {
		src := new(MockSessions)
		avail := new(MockAvailability)
		src.On("FetchSessions", mock.Anything, 4, mock.Anything, mock.Anything).Return([]appointment.Appointment{}, nil)
		avail.On("FetchAvailability", mock.Anything, 4).Return([]availability.WeekdayAvailability{}, nil)
		opts := DefaultOptions()
		opts.RowHeight = 48
		svc := newService(src, avail, opts, clock(fixedNow))

		vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewDay})
		require.NoError(t, err)
		require.NotNil(t, vm.Now)
		assert.InDelta(t, 120.0, vm.Now.Offset, 0.001)
	})

	t.Run("Clamped after the last row", func(t *testing.T) {
		late := time.Date(2026, 1, 7, 23, 30, 0, 0, time.Local)
		src := new(MockSessions)
		avail := new(MockAvailability)
		src.On("FetchSessions", mock.Anything, 4, mock.Anything, mock.Anything).Return([]appointment.Appointment{}, nil)
		avail.On("FetchAvailability", mock.Anything, 4).Return([]availability.WeekdayAvailability{}, nil)
		svc := newService(src, avail, DefaultOptions(), clock(late))

		vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: late, View: timeutil.ViewDay})
		require.NoError(t, err)
		require.NotNil(t, vm.Now)
		assert.Equal(t, 16*60, vm.Now.Minutes)
	})

	t.Run("Omitted when today is not in view", func(t *testing.T) {
		svc, _ := setup(t, nil, nil)
		vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow.AddDate(0, 0, 1), View: timeutil.ViewDay})
		require.NoError(t, err)
		assert.Nil(t, vm.Now)
		assert.False(t, vm.Days[0].IsToday)

		vm, err = svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow.AddDate(0, 0, 7), View: timeutil.ViewWeek})
		require.NoError(t, err)
		assert.Nil(t, vm.Now)
	})
}

func TestMaterializeSameColorForEquivalentLabels(t *testing.T) {
	svc, _ := setup(t, []appointment.Appointment{
		session(1, 7, "10:00", "11:00", appointment.StatusConfirmed, "HIIT"),
		session(2, 7, "10:00", "11:00", appointment.StatusConfirmed, "hiit "),
	}, nil)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewDay})
	require.NoError(t, err)

	events := findRow(t, vm.Days[0], 10).Events
	require.Len(t, events, 2)
	assert.Equal(t, events[0].Color, events[1].Color)
}

func TestMaterializeSkipsUnusableRecords(t *testing.T) {
	svc, _ := setup(t, []appointment.Appointment{
		session(1, 7, "10:00", "11:00", appointment.StatusConfirmed, "HIIT"),
		session(2, 7, "25:00", "26:00", appointment.StatusConfirmed, "Broken"),
		session(3, 20, "10:00", "11:00", appointment.StatusConfirmed, "Outside"),
	}, nil)

	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek})
	require.NoError(t, err)
	assert.Equal(t, 2, vm.Skipped)
	assert.Equal(t, 1, vm.Summary.Total)
}

func TestMaterializeUpstreamFailure(t *testing.T) {
	t.Run("Session source down", func(t *testing.T) {
		src := new(MockSessions)
		avail := new(MockAvailability)
		src.On("FetchSessions", mock.Anything, 4, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		avail.On("FetchAvailability", mock.Anything, 4).Return([]availability.WeekdayAvailability{}, nil).Maybe()
		svc := newService(src, avail, DefaultOptions(), clock(fixedNow))

		vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek})
		assert.Nil(t, vm)
		assert.ErrorIs(t, err, apperr.ErrUpstream)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("Availability store down", func(t *testing.T) {
		src := new(MockSessions)
		avail := new(MockAvailability)
		src.On("FetchSessions", mock.Anything, 4, mock.Anything, mock.Anything).Return([]appointment.Appointment{}, nil).Maybe()
		avail.On("FetchAvailability", mock.Anything, 4).Return(nil, errors.New("redis: nil pool"))
		svc := newService(src, avail, DefaultOptions(), clock(fixedNow))

		vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: timeutil.ViewWeek})
		assert.Nil(t, vm)
		assert.ErrorIs(t, err, apperr.ErrUpstream)
	})
}

func TestMaterializeInvalidView(t *testing.T) {
	svc, _ := setup(t, nil, nil)
	_, err := svc.Materialize(context.Background(), Request{TrainerID: 4, Date: fixedNow, View: "year"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMaterializeDefaultsToToday(t *testing.T) {
	svc, _ := setup(t, nil, nil)
	vm, err := svc.Materialize(context.Background(), Request{TrainerID: 4, View: timeutil.ViewDay})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-07", vm.Reference)
}

func TestOptionsNormalized(t *testing.T) {
	o := Options{StartHour: 20, EndHour: 8, RowHeight: 0, MonthPreviewLimit: -1}.normalized()
	assert.Equal(t, DefaultOptions(), o)

	o = Options{StartHour: 0, EndHour: 24, RowHeight: 40, MonthPreviewLimit: 5}.normalized()
	assert.Equal(t, 0, o.StartHour)
	assert.Equal(t, 24, o.EndHour)
	assert.Equal(t, 40, o.RowHeight)
	assert.Equal(t, 5, o.MonthPreviewLimit)
}
