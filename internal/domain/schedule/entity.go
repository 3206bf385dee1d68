package schedule

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ClockLayout is the wire format of schedule clock fields.
const ClockLayout = "15:04"

// Schedule is the planned shift of a worker at an agency on a date.
// Date is a calendar date (midnight UTC); clock fields are local to the
// agency timezone.
type Schedule struct {
	ID         string
	WorkerID   string
	AgencyID   string
	Date       time.Time
	StartTime  string
	EndTime    string
	BreakStart *string
	BreakEnd   *string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StartAt returns the scheduled start instant in loc.
func (s Schedule) StartAt(loc *time.Location) (time.Time, error) {
	return At(s.Date, s.StartTime, loc)
}

// EndAt returns the scheduled end instant in loc. An end clock earlier than
// the start clock is an overnight shift ending the next day.
func (s Schedule) EndAt(loc *time.Location) (time.Time, error) {
	start, err := s.StartAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	end, err := At(s.Date, s.EndTime, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return end, nil
}

// BreakWindow returns the planned break, if both ends are set.
func (s Schedule) BreakWindow(loc *time.Location) (start, end time.Time, ok bool) {
	if s.BreakStart == nil || s.BreakEnd == nil {
		return time.Time{}, time.Time{}, false
	}
	start, err := At(s.Date, *s.BreakStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = At(s.Date, *s.BreakEnd, loc)
	if err != nil || !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (s Schedule) IsActive() bool {
	return s.Status == StatusActive
}

// At combines a calendar date with an HH:mm clock in loc.
func At(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}
