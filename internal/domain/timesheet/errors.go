package timesheet

import "errors"

// Clock action errors, surfaced synchronously to the caller.
var (
	ErrAlreadyClockedIn    = errors.New("already clocked in today")
	ErrNotClockedIn        = errors.New("not clocked in yet")
	ErrAlreadyClockedOut   = errors.New("already clocked out")
	ErrBreakAlreadyStarted = errors.New("break already started")
	ErrBreakNotStarted     = errors.New("break not started")
	ErrInvalidBreakWindow  = errors.New("break end must be after break start")
	ErrInvalidClockOut     = errors.New("clock out must be after clock in")

	ErrTimesheetNotFound = errors.New("timesheet not found")
)
