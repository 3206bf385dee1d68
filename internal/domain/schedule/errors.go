package schedule

import "errors"

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidClock     = errors.New("invalid schedule clock, use HH:mm")
	ErrDuplicateActive  = errors.New("worker already has an active schedule at this agency on this date")
)
