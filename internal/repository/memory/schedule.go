package memory

import (
	"context"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
)

type ScheduleRepository struct {
	s *Store
}

func (r *ScheduleRepository) GetActiveSchedule(_ context.Context, workerID, agencyID string, date time.Time) (*schedule.Schedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sc := range r.s.schedules {
		if sc.WorkerID == workerID && sc.AgencyID == agencyID && sc.Date.Equal(date) && sc.IsActive() {
			out := cloneSchedule(sc)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *ScheduleRepository) GetByID(_ context.Context, id string) (schedule.Schedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sc, ok := r.s.schedules[id]
	if !ok {
		return schedule.Schedule{}, schedule.ErrScheduleNotFound
	}
	return cloneSchedule(sc), nil
}

func (r *ScheduleRepository) Create(_ context.Context, sc schedule.Schedule) (schedule.Schedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if sc.Status == "" {
		sc.Status = schedule.StatusActive
	}
	if sc.IsActive() {
		for _, other := range r.s.schedules {
			if other.WorkerID == sc.WorkerID && other.AgencyID == sc.AgencyID && other.Date.Equal(sc.Date) && other.IsActive() {
				return schedule.Schedule{}, schedule.ErrDuplicateActive
			}
		}
	}
	if sc.ID == "" {
		sc.ID = r.s.newID()
	}
	now := r.s.now()
	sc.CreatedAt, sc.UpdatedAt = now, now
	r.s.schedules[sc.ID] = cloneSchedule(sc)
	return sc, nil
}

func cloneSchedule(sc schedule.Schedule) schedule.Schedule {
	sc.BreakStart = clonePtr(sc.BreakStart)
	sc.BreakEnd = clonePtr(sc.BreakEnd)
	return sc
}
