package appointment

import (
	"context"
	"errors"
	"fmt"

	"gymsched/internal/apperr"
	"gymsched/internal/events"
	"gymsched/internal/logger"
	"gymsched/internal/metrics"
)

type Service interface {
	Transition(ctx context.Context, trainerID, appointmentID int, to Status) (*Appointment, error)
}

type service struct {
	repo     Repository
	notifier events.Notifier
}

func NewService(repo Repository, notifier events.Notifier) Service {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &service{repo: repo, notifier: notifier}
}

// Transition applies one step of the appointment state machine. Rejected
// requests leave the stored appointment untouched.
func (s *service) Transition(ctx context.Context, trainerID, appointmentID int, to Status) (*Appointment, error) {
	if !to.Valid() {
		return nil, apperr.Validation("status must be one of PENDING, CONFIRMED, CANCELLED, COMPLETED (got %q)", to)
	}

	current, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, apperr.Upstream("get appointment", err)
	}
	if current.TrainerID != trainerID {
		return nil, fmt.Errorf("%w: appointment %d belongs to another trainer", apperr.ErrForbidden, appointmentID)
	}

	from := current.Status
	if from.Terminal() {
		metrics.RecordTransition(string(from), string(to), "rejected")
		return nil, fmt.Errorf("%w: appointment %d is already %s", apperr.ErrInvalidTransition, appointmentID, from)
	}
	if !CanTransition(from, to) {
		metrics.RecordTransition(string(from), string(to), "rejected")
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, to)
	}

	updated, err := s.repo.SetAppointmentStatus(ctx, appointmentID, from, to)
	if err != nil {
		metrics.RecordTransition(string(from), string(to), "error")
		if errors.Is(err, apperr.ErrInvalidTransition) {
			return nil, err
		}
		return nil, apperr.Upstream("set appointment status", err)
	}
	metrics.RecordTransition(string(from), string(to), "ok")

	logger.Info("appointment transitioned",
		"appointment_id", appointmentID,
		"trainer_id", trainerID,
		"from", from,
		"to", to,
	)

	s.notifier.Notify(events.Event{
		Kind:          events.AppointmentStatusChange,
		TrainerID:     trainerID,
		AppointmentID: appointmentID,
		Status:        string(to),
	})
	return updated, nil
}
