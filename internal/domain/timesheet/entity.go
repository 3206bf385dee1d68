package timesheet

import (
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
)

type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
	StatusValidated  Status = "validated"
	StatusDisputed   Status = "disputed"
)

// Key identifies the single timesheet of a worker at an agency on a date.
type Key struct {
	WorkerID string
	AgencyID string
	Date     time.Time
}

type Delays struct {
	Start      int
	End        int
	BreakStart int
	BreakEnd   int
}

// AlertsSent holds the persisted dedup flags, one per alert type.
type AlertsSent struct {
	LateStart       bool
	LateEnd         bool
	LongBreak       bool
	MissingClockOut bool
}

// Has reports whether the flag for t is set. Unknown types report false.
func (a AlertsSent) Has(t alert.Type) bool {
	switch t {
	case alert.TypeLateStart:
		return a.LateStart
	case alert.TypeLateEnd:
		return a.LateEnd
	case alert.TypeLongBreak:
		return a.LongBreak
	case alert.TypeMissingClockOut:
		return a.MissingClockOut
	}
	return false
}

// Set raises the flag for t.
func (a *AlertsSent) Set(t alert.Type) error {
	switch t {
	case alert.TypeLateStart:
		a.LateStart = true
	case alert.TypeLateEnd:
		a.LateEnd = true
	case alert.TypeLongBreak:
		a.LongBreak = true
	case alert.TypeMissingClockOut:
		a.MissingClockOut = true
	default:
		return alert.ErrUnknownType
	}
	return nil
}

// Timesheet is the observed attendance of a worker at an agency on a date.
type Timesheet struct {
	ID                 string
	WorkerID           string
	AgencyID           string
	Date               time.Time
	ScheduleID         *string
	StartTime          *time.Time
	EndTime            *time.Time
	BreakStart         *time.Time
	BreakEnd           *time.Time
	Delays             Delays
	AlertsSent         AlertsSent
	TotalWorkedMinutes int
	TotalBreakMinutes  int
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// New returns an empty timesheet for key.
func New(key Key) Timesheet {
	return Timesheet{
		WorkerID: key.WorkerID,
		AgencyID: key.AgencyID,
		Date:     key.Date,
		Status:   StatusIncomplete,
	}
}

func (t Timesheet) Key() Key {
	return Key{WorkerID: t.WorkerID, AgencyID: t.AgencyID, Date: t.Date}
}

// State derives the lifecycle state from the clock fields.
func (t Timesheet) State() State {
	switch {
	case t.EndTime != nil:
		return StateClockedOut
	case t.StartTime == nil:
		return StateNotStarted
	case t.BreakStart != nil && t.BreakEnd == nil:
		return StateOnBreak
	default:
		return StateClockedIn
	}
}
