package schedule

import (
	"context"
	"time"
)

// ScheduleRepository is the read contract the attendance engine depends on.
// Planning CRUD lives outside this service; Create exists for seeding.
type ScheduleRepository interface {
	// GetActiveSchedule returns the active schedule for (worker, agency, date) or nil.
	GetActiveSchedule(ctx context.Context, workerID, agencyID string, date time.Time) (*Schedule, error)

	GetByID(ctx context.Context, id string) (Schedule, error)

	Create(ctx context.Context, s Schedule) (Schedule, error)
}
