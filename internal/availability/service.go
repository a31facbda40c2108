package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"gymsched/internal/apperr"
	"gymsched/internal/events"
	"gymsched/internal/logger"
	"gymsched/internal/metrics"
	"gymsched/internal/timeutil"
	"gymsched/internal/validation"
)

type Service interface {
	List(ctx context.Context, trainerID int) ([]WeekdayAvailability, error)
	AddSlot(ctx context.Context, trainerID int, weekday timeutil.Weekday, slot TimeSlot) (*WeekdayAvailability, error)
	RemoveSlot(ctx context.Context, trainerID int, weekday timeutil.Weekday, index int) (*WeekdayAvailability, error)
	SetSlotStatus(ctx context.Context, trainerID int, weekday timeutil.Weekday, index int, status SlotStatus) (*WeekdayAvailability, error)
	SetNote(ctx context.Context, trainerID int, weekday timeutil.Weekday, note string) (*WeekdayAvailability, error)
	QuickAddByWeekdays(ctx context.Context, trainerID int, weekdays []timeutil.Weekday, slot TimeSlot) (*BulkResult, error)
	QuickAddByDateRange(ctx context.Context, trainerID int, start, end time.Time, slot TimeSlot) (*BulkResult, error)
	CopyDay(ctx context.Context, trainerID int, from timeutil.Weekday, targets []timeutil.Weekday) (*BulkResult, error)
}

type service struct {
	repo     Repository
	notifier events.Notifier
	now      func() time.Time
}

func NewService(repo Repository, notifier events.Notifier) Service {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &service{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

// ValidateSlot rejects malformed or inverted time pairs and unknown statuses.
func ValidateSlot(slot TimeSlot) error {
	if errs := validation.Struct(slot); len(errs) > 0 {
		return apperr.Validation("%s", validation.Summary(errs))
	}
	if slot.StartTime >= slot.EndTime {
		return apperr.Validation("start_time %s must be before end_time %s", slot.StartTime, slot.EndTime)
	}
	return nil
}

func validateWeekday(w timeutil.Weekday) error {
	if !w.Valid() {
		return apperr.Validation("unknown weekday %q", w)
	}
	return nil
}

func (s *service) List(ctx context.Context, trainerID int) ([]WeekdayAvailability, error) {
	days, err := s.repo.FetchAvailability(ctx, trainerID)
	if err != nil {
		return nil, apperr.Upstream("fetch availability", err)
	}
	if days == nil {
		days = []WeekdayAvailability{}
	}
	sortDays(days)
	return days, nil
}

func (s *service) AddSlot(ctx context.Context, trainerID int, weekday timeutil.Weekday, slot TimeSlot) (*WeekdayAvailability, error) {
	if err := validateWeekday(weekday); err != nil {
		return nil, err
	}
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	day, err := s.appendSlot(ctx, trainerID, weekday, slot)
	metrics.RecordSlotMutation("add_slot", metrics.Result(err))
	if err != nil {
		return nil, err
	}

	s.notify(trainerID, weekday)
	return day, nil
}

func (s *service) RemoveSlot(ctx context.Context, trainerID int, weekday timeutil.Weekday, index int) (*WeekdayAvailability, error) {
	if err := validateWeekday(weekday); err != nil {
		return nil, err
	}

	day, err := s.loadDay(ctx, trainerID, weekday)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(day.Slots) {
		return nil, apperr.NotFound("slot %d on %s", index, weekday)
	}

	remaining := make(Slots, 0, len(day.Slots)-1)
	remaining = append(remaining, day.Slots[:index]...)
	remaining = append(remaining, day.Slots[index+1:]...)

	if len(remaining) == 0 {
		err = storeErr("delete availability", s.repo.DeleteAvailability(ctx, trainerID, weekday))
		metrics.RecordSlotMutation("remove_slot", metrics.Result(err))
		if err != nil {
			return nil, err
		}
		s.notify(trainerID, weekday)
		return nil, nil
	}

	err = storeErr("replace availability", s.repo.ReplaceAvailability(ctx, trainerID, weekday, remaining, day.Note))
	metrics.RecordSlotMutation("remove_slot", metrics.Result(err))
	if err != nil {
		return nil, err
	}

	s.notify(trainerID, weekday)
	return s.result(trainerID, weekday, remaining, day.Note), nil
}

func (s *service) SetSlotStatus(ctx context.Context, trainerID int, weekday timeutil.Weekday, index int, status SlotStatus) (*WeekdayAvailability, error) {
	if err := validateWeekday(weekday); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("status must be one of RANH, BAN, NGHI (got %q)", status)
	}

	day, err := s.loadDay(ctx, trainerID, weekday)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(day.Slots) {
		return nil, apperr.NotFound("slot %d on %s", index, weekday)
	}

	slots := day.Slots.Clone()
	slots[index].Status = status

	err = storeErr("replace availability", s.repo.ReplaceAvailability(ctx, trainerID, weekday, slots, day.Note))
	metrics.RecordSlotMutation("set_slot_status", metrics.Result(err))
	if err != nil {
		return nil, err
	}

	s.notify(trainerID, weekday)
	return s.result(trainerID, weekday, slots, day.Note), nil
}

func (s *service) SetNote(ctx context.Context, trainerID int, weekday timeutil.Weekday, note string) (*WeekdayAvailability, error) {
	if err := validateWeekday(weekday); err != nil {
		return nil, err
	}

	day, err := s.loadDay(ctx, trainerID, weekday)
	if err != nil {
		return nil, err
	}

	slots := day.Slots.Clone()
	err = storeErr("replace availability", s.repo.ReplaceAvailability(ctx, trainerID, weekday, slots, note))
	metrics.RecordSlotMutation("set_note", metrics.Result(err))
	if err != nil {
		return nil, err
	}

	s.notify(trainerID, weekday)
	return s.result(trainerID, weekday, slots, note), nil
}

func (s *service) QuickAddByWeekdays(ctx context.Context, trainerID int, weekdays []timeutil.Weekday, slot TimeSlot) (*BulkResult, error) {
	if len(weekdays) == 0 {
		return nil, apperr.Validation("at least one weekday is required")
	}
	for _, w := range weekdays {
		if err := validateWeekday(w); err != nil {
			return nil, err
		}
	}
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	result := s.quickAdd(ctx, trainerID, timeutil.SortWeekdays(weekdays), slot)
	metrics.RecordQuickAdd("by_weekdays", len(result.Succeeded), len(result.Failed))
	return result, nil
}

// QuickAddByDateRange expresses "every weekday in this span" without a
// recurrence grammar: the span collapses to the weekday set it touches.
func (s *service) QuickAddByDateRange(ctx context.Context, trainerID int, start, end time.Time, slot TimeSlot) (*BulkResult, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperr.Validation("start_date and end_date are required")
	}
	if timeutil.StartOfDay(end).Before(timeutil.StartOfDay(start)) {
		return nil, apperr.Validation("end_date %s is before start_date %s", timeutil.DayKey(end), timeutil.DayKey(start))
	}
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	result := s.quickAdd(ctx, trainerID, timeutil.WeekdayKeys(start, end), slot)
	metrics.RecordQuickAdd("by_date_range", len(result.Succeeded), len(result.Failed))
	return result, nil
}

func (s *service) CopyDay(ctx context.Context, trainerID int, from timeutil.Weekday, targets []timeutil.Weekday) (*BulkResult, error) {
	if err := validateWeekday(from); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, apperr.Validation("at least one target weekday is required")
	}
	for _, w := range targets {
		if err := validateWeekday(w); err != nil {
			return nil, err
		}
		if w == from {
			return nil, apperr.Validation("cannot copy %s onto itself", from)
		}
	}

	days, err := s.repo.FetchAvailability(ctx, trainerID)
	if err != nil {
		return nil, apperr.Upstream("fetch availability", err)
	}
	source := findDay(days, from)
	if source == nil || len(source.Slots) == 0 {
		return nil, apperr.NotFound("no availability on %s to copy", from)
	}

	result := &BulkResult{Succeeded: []timeutil.Weekday{}, Failed: []WeekdayFailure{}}
	for _, target := range timeutil.SortWeekdays(targets) {
		note := ""
		if existing := findDay(days, target); existing != nil {
			note = existing.Note
		}

		err := s.repo.ReplaceAvailability(ctx, trainerID, target, source.Slots.Clone(), note)
		if err != nil {
			err = apperr.Upstream("replace availability", err)
			logger.WithError(err).Warn("copy day failed", "trainer_id", trainerID, "from", from, "to", target)
			result.Failed = append(result.Failed, WeekdayFailure{Weekday: target, Error: err.Error(), Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, target)
	}

	metrics.RecordQuickAdd("copy_day", len(result.Succeeded), len(result.Failed))
	s.notify(trainerID, result.Succeeded...)
	return result, nil
}

// quickAdd attempts every weekday independently; one failure never stops
// the remaining weekdays.
func (s *service) quickAdd(ctx context.Context, trainerID int, weekdays []timeutil.Weekday, slot TimeSlot) *BulkResult {
	result := &BulkResult{Succeeded: []timeutil.Weekday{}, Failed: []WeekdayFailure{}}
	for _, w := range weekdays {
		if _, err := s.appendSlot(ctx, trainerID, w, slot); err != nil {
			logger.WithError(err).Warn("quick add failed", "trainer_id", trainerID, "weekday", w)
			result.Failed = append(result.Failed, WeekdayFailure{Weekday: w, Error: err.Error(), Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, w)
	}
	s.notify(trainerID, result.Succeeded...)
	return result
}

func (s *service) appendSlot(ctx context.Context, trainerID int, weekday timeutil.Weekday, slot TimeSlot) (*WeekdayAvailability, error) {
	days, err := s.repo.FetchAvailability(ctx, trainerID)
	if err != nil {
		return nil, apperr.Upstream("fetch availability", err)
	}

	var slots Slots
	note := ""
	if current := findDay(days, weekday); current != nil {
		slots = current.Slots.Clone()
		note = current.Note
	}
	slots = append(slots, slot)

	if err := s.repo.ReplaceAvailability(ctx, trainerID, weekday, slots, note); err != nil {
		return nil, apperr.Upstream("replace availability", err)
	}
	return s.result(trainerID, weekday, slots, note), nil
}

func (s *service) loadDay(ctx context.Context, trainerID int, weekday timeutil.Weekday) (*WeekdayAvailability, error) {
	days, err := s.repo.FetchAvailability(ctx, trainerID)
	if err != nil {
		return nil, apperr.Upstream("fetch availability", err)
	}
	day := findDay(days, weekday)
	if day == nil {
		return nil, apperr.NotFound("no availability on %s", weekday)
	}
	return day, nil
}

func (s *service) result(trainerID int, weekday timeutil.Weekday, slots Slots, note string) *WeekdayAvailability {
	return &WeekdayAvailability{
		TrainerID: trainerID,
		Weekday:   weekday,
		Slots:     slots,
		Note:      note,
		UpdatedAt: s.now(),
	}
}

func (s *service) notify(trainerID int, weekdays ...timeutil.Weekday) {
	if len(weekdays) == 0 {
		return
	}
	names := make([]string, len(weekdays))
	for i, w := range weekdays {
		names[i] = string(w)
	}
	s.notifier.Notify(events.Event{Kind: events.AvailabilityChanged, TrainerID: trainerID, Weekdays: names})
}

// storeErr keeps not-found reports from the store distinct from outages.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return apperr.Upstream(op, err)
}

func findDay(days []WeekdayAvailability, weekday timeutil.Weekday) *WeekdayAvailability {
	for i := range days {
		if days[i].Weekday == weekday {
			return &days[i]
		}
	}
	return nil
}

func sortDays(days []WeekdayAvailability) {
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Weekday.Index() < days[j].Weekday.Index()
	})
}
