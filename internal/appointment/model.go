package appointment

import (
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// transitions lists the allowed next states. Terminal states have none.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Appointment is a booked or scheduled session. Date is the local calendar
// day; StartTime and EndTime are "HH:MM" wall-clock strings.
type Appointment struct {
	ID           int            `db:"id" json:"id"`
	MemberID     int            `db:"member_id" json:"member_id"`
	MemberName   string         `db:"member_name" json:"member_name"`
	TrainerID    int            `db:"trainer_id" json:"trainer_id"`
	Date         time.Time      `db:"session_date" json:"date"`
	StartTime    string         `db:"start_time" json:"start_time" example:"10:00"`
	EndTime      string         `db:"end_time" json:"end_time" example:"11:00"`
	Status       Status         `db:"status" json:"status" example:"PENDING"`
	TypeLabel    string         `db:"type_label" json:"type_label" example:"HIIT"`
	Location     string         `db:"location" json:"location"`
	Note         string         `db:"note" json:"note"`
	Participants pq.StringArray `db:"participants" json:"participants" swaggertype:"array,string"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

type TransitionRequest struct {
	Status Status `json:"status" binding:"required" example:"CONFIRMED"`
}
