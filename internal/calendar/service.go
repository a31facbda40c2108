package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gymsched/internal/apperr"
	"gymsched/internal/appointment"
	"gymsched/internal/availability"
	"gymsched/internal/colorizer"
	"gymsched/internal/logger"
	"gymsched/internal/metrics"
	"gymsched/internal/timeutil"
)

// SessionSource is the read side of the appointment store.
type SessionSource interface {
	FetchSessions(ctx context.Context, trainerID int, start, end time.Time) ([]appointment.Appointment, error)
}

// AvailabilitySource is the read side of the availability store.
type AvailabilitySource interface {
	FetchAvailability(ctx context.Context, trainerID int) ([]availability.WeekdayAvailability, error)
}

type Service interface {
	Materialize(ctx context.Context, req Request) (*ViewModel, error)
}

type service struct {
	sessions     SessionSource
	availability AvailabilitySource
	opts         Options
	now          func() time.Time
}

func NewService(sessions SessionSource, avail AvailabilitySource, opts Options) Service {
	return newService(sessions, avail, opts, time.Now)
}

func newService(sessions SessionSource, avail AvailabilitySource, opts Options, now func() time.Time) *service {
	return &service{
		sessions:     sessions,
		availability: avail,
		opts:         opts.normalized(),
		now:          now,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.StartHour < 0 || o.EndHour > 24 || o.StartHour >= o.EndHour {
		o.StartHour, o.EndHour = def.StartHour, def.EndHour
	}
	if o.RowHeight <= 0 {
		o.RowHeight = def.RowHeight
	}
	if o.MonthPreviewLimit <= 0 {
		o.MonthPreviewLimit = def.MonthPreviewLimit
	}
	return o
}

// Materialize builds the calendar for one trainer. It performs exactly one
// session fetch and one availability fetch; any fetch failure fails the whole
// view with an upstream error.
func (s *service) Materialize(ctx context.Context, req Request) (*ViewModel, error) {
	ref := req.Date
	if ref.IsZero() {
		ref = s.now()
	}

	rng, err := timeutil.RangeForView(ref, req.View)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	for _, st := range req.Filter.Statuses {
		if !st.Valid() {
			return nil, apperr.Validation("unknown appointment status %q", st)
		}
	}

	sessions, days, err := s.fetch(ctx, req.TrainerID, rng)
	if err != nil {
		metrics.RecordMaterialization(string(req.View), "error", 0)
		return nil, err
	}

	now := s.now().In(rng.Start.Location())
	vm := s.build(req, ref, rng, now, sessions, days)

	metrics.RecordMaterialization(string(req.View), "ok", vm.Summary.Visible)
	return vm, nil
}

func (s *service) fetch(ctx context.Context, trainerID int, rng timeutil.Range) ([]appointment.Appointment, []availability.WeekdayAvailability, error) {
	var (
		sessions []appointment.Appointment
		days     []availability.WeekdayAvailability
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.sessions.FetchSessions(gctx, trainerID, rng.Start, rng.End)
		return apperr.Upstream("fetch sessions", err)
	})
	g.Go(func() error {
		var err error
		days, err = s.availability.FetchAvailability(gctx, trainerID)
		return apperr.Upstream("fetch availability", err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return sessions, days, nil
}

type interval struct {
	start, end int
}

func (s *service) build(req Request, ref time.Time, rng timeutil.Range, now time.Time, sessions []appointment.Appointment, weekly []availability.WeekdayAvailability) *ViewModel {
	dates := timeutil.Days(rng)
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		index[timeutil.DayKey(d)] = i
	}

	vm := &ViewModel{
		View:      req.View,
		Reference: timeutil.DayKey(ref),
		Start:     timeutil.DayKey(rng.Start),
		End:       timeutil.DayKey(rng.End),
		Summary:   Summary{ByStatus: map[appointment.Status]int{}},
	}

	perDay := make([][]Event, len(dates))
	busy := make([][]interval, len(dates))
	minHour, maxHour := s.opts.StartHour, s.opts.EndHour

	for _, a := range sessions {
		key := timeutil.DayKey(a.Date)
		i, ok := index[key]
		if !ok {
			logger.Debug("session outside requested range", "appointment_id", a.ID, "date", key)
			vm.Skipped++
			continue
		}

		ev, span, err := toEvent(a, key)
		if err != nil {
			logger.Warn("skipping malformed session", "appointment_id", a.ID, "error", err)
			vm.Skipped++
			continue
		}

		perDay[i] = append(perDay[i], ev)
		if ev.Status != appointment.StatusCancelled {
			busy[i] = append(busy[i], span)
		}

		vm.Summary.Total++
		vm.Summary.ByStatus[ev.Status]++
		if timeutil.IsSameDay(a.Date, now) {
			vm.Summary.Today++
		}
		if ev.Hour < minHour {
			minHour = ev.Hour
		}
		if ev.Hour+1 > maxHour {
			maxHour = ev.Hour + 1
		}
	}

	byWeekday := make(map[timeutil.Weekday]availability.WeekdayAvailability, len(weekly))
	for _, w := range weekly {
		byWeekday[w.Weekday] = w
	}

	grid := req.View != timeutil.ViewMonth
	if grid {
		vm.StartHour, vm.EndHour, vm.RowHeight = minHour, maxHour, s.opts.RowHeight
	}

	vm.Days = make([]Day, len(dates))
	for i, d := range dates {
		key := timeutil.DayKey(d)
		weekday := timeutil.WeekdayOf(d)
		day := Day{
			Date:    key,
			Weekday: weekday,
			IsToday: timeutil.IsSameDay(d, now),
		}

		if w, ok := byWeekday[weekday]; ok {
			day.Note = w.Note
			day.Slots = slotStates(w.Slots, busy[i])
		} else {
			day.Slots = []Slot{}
		}

		events := applyFilter(perDay[i], req.Filter)
		sortEvents(events)
		day.Count = len(events)
		vm.Summary.Visible += len(events)

		if grid {
			day.Rows = hourRows(events, minHour, maxHour)
		} else {
			limit := s.opts.MonthPreviewLimit
			if len(events) > limit {
				day.Preview = events[:limit]
				day.Overflow = len(events) - limit
			} else {
				day.Preview = events
			}
		}

		vm.Days[i] = day
	}

	if grid {
		if rng.Contains(now) {
			vm.Now = nowMarker(now, minHour, maxHour, s.opts.RowHeight)
		}
	}

	return vm
}

func toEvent(a appointment.Appointment, key string) (Event, interval, error) {
	start, err := timeutil.ClockMinutes(a.StartTime)
	if err != nil {
		return Event{}, interval{}, fmt.Errorf("start_time: %w", err)
	}
	duration, err := timeutil.Duration(a.StartTime, a.EndTime)
	if err != nil {
		return Event{}, interval{}, fmt.Errorf("end_time: %w", err)
	}

	participants := []string(a.Participants)
	if participants == nil {
		participants = []string{}
	}

	ev := Event{
		ID:           a.ID,
		MemberID:     a.MemberID,
		MemberName:   a.MemberName,
		Date:         key,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Hour:         start / 60,
		Duration:     duration,
		Status:       a.Status,
		TypeLabel:    a.TypeLabel,
		Location:     a.Location,
		Note:         a.Note,
		Participants: participants,
		Color:        colorizer.ColorFor(a.TypeLabel),
	}
	return ev, interval{start: start, end: start + duration}, nil
}

// slotStates derives free/busy for each weekday slot against the day's
// non-cancelled sessions using half-open overlap.
func slotStates(slots availability.Slots, busy []interval) []Slot {
	out := make([]Slot, 0, len(slots))
	for i, sl := range slots {
		slot := Slot{
			Index:     i,
			StartTime: sl.StartTime,
			EndTime:   sl.EndTime,
			Status:    sl.Status,
		}
		switch sl.Status {
		case availability.StatusBusy:
			slot.State = SlotBusy
		case availability.StatusOff:
			slot.State = SlotOff
		default:
			slot.State = SlotFree
			if overlapsAny(sl, busy) {
				slot.State = SlotBooked
			}
		}
		out = append(out, slot)
	}
	return out
}

func overlapsAny(sl availability.TimeSlot, busy []interval) bool {
	start, err := timeutil.ClockMinutes(sl.StartTime)
	if err != nil {
		return false
	}
	end, err := timeutil.ClockMinutes(sl.EndTime)
	if err != nil {
		return false
	}
	for _, b := range busy {
		if start < b.end && b.start < end {
			return true
		}
	}
	return false
}

func applyFilter(events []Event, f Filter) []Event {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	if len(f.Statuses) == 0 && query == "" {
		return append([]Event(nil), events...)
	}

	allowed := make(map[appointment.Status]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		allowed[st] = true
	}

	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if len(allowed) > 0 && !allowed[ev.Status] {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(ev.MemberName), query) &&
			!strings.Contains(strings.ToLower(ev.TypeLabel), query) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartTime != events[j].StartTime {
			return events[i].StartTime < events[j].StartTime
		}
		return events[i].ID < events[j].ID
	})
}

// hourRows places every event in the single row of its start hour.
func hourRows(events []Event, startHour, endHour int) []HourRow {
	rows := make([]HourRow, 0, endHour-startHour)
	for h := startHour; h < endHour; h++ {
		rows = append(rows, HourRow{Hour: h, Label: fmt.Sprintf("%02d:00", h), Events: []Event{}})
	}
	for _, ev := range events {
		rows[ev.Hour-startHour].Events = append(rows[ev.Hour-startHour].Events, ev)
	}
	return rows
}

func nowMarker(now time.Time, startHour, endHour, rowHeight int) *NowMarker {
	minutes := now.Hour()*60 + now.Minute() - startHour*60
	if minutes < 0 {
		minutes = 0
	}
	if limit := (endHour - startHour) * 60; minutes > limit {
		minutes = limit
	}
	return &NowMarker{
		Date:    timeutil.DayKey(now),
		Minutes: minutes,
		Offset:  float64(minutes) / 60 * float64(rowHeight),
	}
}
