package calendar

import (
	"time"

	"gymsched/internal/appointment"
	"gymsched/internal/availability"
	"gymsched/internal/colorizer"
	"gymsched/internal/timeutil"
)

// SlotState is the derived free/busy state of an availability slot on a
// concrete date.
type SlotState string

const (
	SlotFree   SlotState = "free"
	SlotBooked SlotState = "booked"
	SlotBusy   SlotState = "busy"
	SlotOff    SlotState = "off"
)

type Filter struct {
	Statuses []appointment.Status
	Query    string
}

type Request struct {
	TrainerID int
	Date      time.Time
	View      timeutil.ViewMode
	Filter    Filter
}

// Options shape the rendered grid.
type Options struct {
	StartHour         int
	EndHour           int
	RowHeight         int
	MonthPreviewLimit int
}

func DefaultOptions() Options {
	return Options{
		StartHour:         6,
		EndHour:           22,
		RowHeight:         60,
		MonthPreviewLimit: 3,
	}
}

type Event struct {
	ID           int                    `json:"id"`
	MemberID     int                    `json:"member_id"`
	MemberName   string                 `json:"member_name"`
	Date         string                 `json:"date" example:"2026-01-07"`
	StartTime    string                 `json:"start_time" example:"10:00"`
	EndTime      string                 `json:"end_time" example:"11:00"`
	Hour         int                    `json:"hour" example:"10"`
	Duration     int                    `json:"duration" example:"60"`
	Status       appointment.Status     `json:"status" example:"CONFIRMED"`
	TypeLabel    string                 `json:"type_label" example:"HIIT"`
	Location     string                 `json:"location"`
	Note         string                 `json:"note"`
	Participants []string               `json:"participants"`
	Color        colorizer.PaletteColor `json:"color"`
}

type HourRow struct {
	Hour   int     `json:"hour" example:"10"`
	Label  string  `json:"label" example:"10:00"`
	Events []Event `json:"events"`
}

type Slot struct {
	Index     int                     `json:"index"`
	StartTime string                  `json:"start_time" example:"08:00"`
	EndTime   string                  `json:"end_time" example:"09:00"`
	Status    availability.SlotStatus `json:"status" example:"RANH"`
	State     SlotState               `json:"state" example:"free"`
}

// Day is one column (day/week view) or one cell (month view).
type Day struct {
	Date     string           `json:"date" example:"2026-01-07"`
	Weekday  timeutil.Weekday `json:"weekday" example:"Wednesday"`
	IsToday  bool             `json:"is_today"`
	Rows     []HourRow        `json:"rows,omitempty"`
	Preview  []Event          `json:"preview,omitempty"`
	Overflow int              `json:"overflow"`
	Count    int              `json:"count"`
	Note     string           `json:"note,omitempty"`
	Slots    []Slot           `json:"slots"`
}

type NowMarker struct {
	Date    string  `json:"date" example:"2026-01-07"`
	Minutes int     `json:"minutes" example:"150"`
	Offset  float64 `json:"offset" example:"150"`
}

type Summary struct {
	Total    int                        `json:"total"`
	Today    int                        `json:"today"`
	Visible  int                        `json:"visible"`
	ByStatus map[appointment.Status]int `json:"by_status"`
}

type ViewModel struct {
	View      timeutil.ViewMode `json:"view" example:"week"`
	Reference string            `json:"reference" example:"2026-01-07"`
	Start     string            `json:"start" example:"2026-01-04"`
	End       string            `json:"end" example:"2026-01-11"`
	StartHour int               `json:"start_hour,omitempty" example:"6"`
	EndHour   int               `json:"end_hour,omitempty" example:"22"`
	RowHeight int               `json:"row_height,omitempty" example:"60"`
	Days      []Day             `json:"days"`
	Now       *NowMarker        `json:"now,omitempty"`
	Summary   Summary           `json:"summary"`
	Skipped   int               `json:"skipped"`
}
