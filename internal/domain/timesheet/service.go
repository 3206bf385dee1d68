package timesheet

import "context"

// TimesheetService defines the clock actions of a worker.
type TimesheetService interface {
	ClockIn(ctx context.Context, req ClockRequest) (TimesheetResponse, error)
	StartBreak(ctx context.Context, req ClockRequest) (TimesheetResponse, error)
	EndBreak(ctx context.Context, req ClockRequest) (TimesheetResponse, error)
	ClockOut(ctx context.Context, req ClockRequest) (TimesheetResponse, error)

	// GetToday returns today's timesheet, or ErrTimesheetNotFound.
	GetToday(ctx context.Context, req ClockRequest) (TimesheetResponse, error)
}
