package availability

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gymsched/internal/timeutil"
)

type SlotStatus string

const (
	StatusFree SlotStatus = "RANH"
	StatusBusy SlotStatus = "BAN"
	StatusOff  SlotStatus = "NGHI"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case StatusFree, StatusBusy, StatusOff:
		return true
	}
	return false
}

type TimeSlot struct {
	StartTime string     `json:"start_time" validate:"required,clock" example:"08:00"`
	EndTime   string     `json:"end_time" validate:"required,clock" example:"09:00"`
	Status    SlotStatus `json:"status" validate:"required,oneof=RANH BAN NGHI" example:"RANH"`
}

// Slots is stored as a JSON array in a single column.
type Slots []TimeSlot

func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	copy(out, s)
	return out
}

func (s Slots) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *Slots) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = Slots{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("slots: unsupported scan type %T", src)
	}
	var out Slots
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("slots: %w", err)
	}
	if out == nil {
		out = Slots{}
	}
	*s = out
	return nil
}

type WeekdayAvailability struct {
	TrainerID int              `db:"trainer_id" json:"trainer_id"`
	Weekday   timeutil.Weekday `db:"weekday" json:"weekday" example:"Monday"`
	Slots     Slots            `db:"slots" json:"slots"`
	Note      string           `db:"note" json:"note"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// SlotRequest is the wire shape of a slot; Status defaults to RANH.
type SlotRequest struct {
	StartTime string     `json:"start_time" binding:"required" example:"18:00"`
	EndTime   string     `json:"end_time" binding:"required" example:"19:00"`
	Status    SlotStatus `json:"status" example:"RANH"`
}

func (r SlotRequest) Slot() TimeSlot {
	status := r.Status
	if status == "" {
		status = StatusFree
	}
	return TimeSlot{StartTime: r.StartTime, EndTime: r.EndTime, Status: status}
}

type SetStatusRequest struct {
	Status SlotStatus `json:"status" binding:"required" example:"BAN"`
}

type NoteRequest struct {
	Note string `json:"note" example:"Morning classes only"`
}

type QuickAddWeekdaysRequest struct {
	Weekdays []string `json:"weekdays" binding:"required,min=1" example:"Tuesday,Thursday"`
	SlotRequest
}

type QuickAddRangeRequest struct {
	StartDate string `json:"start_date" binding:"required" example:"2026-01-05"`
	EndDate   string `json:"end_date" binding:"required" example:"2026-02-05"`
	SlotRequest
}

type CopyDayRequest struct {
	Targets []string `json:"targets" binding:"required,min=1" example:"Wednesday,Friday"`
}

type WeekdayFailure struct {
	Weekday timeutil.Weekday `json:"weekday"`
	Error   string           `json:"error"`
	Err     error            `json:"-"`
}

// BulkResult reports every weekday of a bulk operation independently.
type BulkResult struct {
	Succeeded []timeutil.Weekday `json:"succeeded"`
	Failed    []WeekdayFailure   `json:"failed"`
}

func (r *BulkResult) AllFailed() bool {
	return len(r.Succeeded) == 0 && len(r.Failed) > 0
}

func (r *BulkResult) Partial() bool {
	return len(r.Succeeded) > 0 && len(r.Failed) > 0
}

type DeletedDayResponse struct {
	Weekday timeutil.Weekday `json:"weekday" example:"Monday"`
	Deleted bool             `json:"deleted" example:"true"`
}
