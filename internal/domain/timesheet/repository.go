package timesheet

import (
	"context"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
)

// LateStartCandidate is an active schedule whose late_start alert is unsent,
// with its timesheet when one exists.
type LateStartCandidate struct {
	Schedule  schedule.Schedule
	Timesheet *Timesheet
}

// TimesheetRepository defines data access for timesheets. Every write is a
// partial-field update keyed by (worker, agency, date); alert flags are only
// written through MarkAlertSent.
type TimesheetRepository interface {
	// GetByKey returns the timesheet for key, or nil when none exists.
	GetByKey(ctx context.Context, key Key) (*Timesheet, error)

	// Mutate loads (or lazily creates) the timesheet for key under a row lock,
	// applies fn and persists the clock, delay, total and status fields.
	// Nothing is written when fn returns an error.
	Mutate(ctx context.Context, key Key, fn func(*Timesheet) error) (Timesheet, error)

	// RecordLateStart upserts the start delay while no clock-in exists.
	// Returns ErrAlreadyClockedIn when the worker clocked in concurrently.
	RecordLateStart(ctx context.Context, key Key, scheduleID string, delayMinutes int) (Timesheet, error)

	ListLateStartCandidates(ctx context.Context, date time.Time) ([]LateStartCandidate, error)

	// ListStartedByDate returns timesheets of date with a start.
	ListStartedByDate(ctx context.Context, date time.Time) ([]Timesheet, error)

	// ListOpenByDate returns timesheets of date with a start, no end and no
	// missing_clock_out alert sent.
	ListOpenByDate(ctx context.Context, date time.Time) ([]Timesheet, error)

	// MarkAlertSent raises one flag and stores the delivery atomically.
	// Returns alert.ErrAlreadySent when the flag was already set.
	MarkAlertSent(ctx context.Context, id string, delivery alert.Delivery) error
}
