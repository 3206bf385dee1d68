package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
)

type TimesheetRepository struct {
	s *Store
}

func tsKey(k timesheet.Key) string {
	return k.WorkerID + "|" + k.AgencyID + "|" + k.Date.Format(time.DateOnly)
}

func (r *TimesheetRepository) GetByKey(_ context.Context, key timesheet.Key) (*timesheet.Timesheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.timesheets[tsKey(key)]
	if !ok {
		return nil, nil
	}
	out := cloneTimesheet(t)
	return &out, nil
}

func (r *TimesheetRepository) Mutate(_ context.Context, key timesheet.Key, fn func(*timesheet.Timesheet) error) (timesheet.Timesheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := tsKey(key)
	current, ok := r.s.timesheets[k]
	if !ok {
		current = timesheet.New(key)
		current.ID = r.s.newID()
		current.CreatedAt = r.s.now()
	}

	work := cloneTimesheet(current)
	if err := fn(&work); err != nil {
		return timesheet.Timesheet{}, err
	}
	// flags are owned by MarkAlertSent
	work.AlertsSent = current.AlertsSent
	work.UpdatedAt = r.s.now()
	r.s.timesheets[k] = cloneTimesheet(work)
	return work, nil
}

func (r *TimesheetRepository) RecordLateStart(_ context.Context, key timesheet.Key, scheduleID string, delayMinutes int) (timesheet.Timesheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := tsKey(key)
	t, ok := r.s.timesheets[k]
	if !ok {
		t = timesheet.New(key)
		t.ID = r.s.newID()
		t.CreatedAt = r.s.now()
	}
	if t.StartTime != nil {
		return timesheet.Timesheet{}, timesheet.ErrAlreadyClockedIn
	}
	id := scheduleID
	t.ScheduleID = &id
	t.Delays.Start = delayMinutes
	t.UpdatedAt = r.s.now()
	r.s.timesheets[k] = cloneTimesheet(t)
	return t, nil
}

func (r *TimesheetRepository) ListLateStartCandidates(_ context.Context, date time.Time) ([]timesheet.LateStartCandidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []timesheet.LateStartCandidate
	for _, sc := range r.s.schedules {
		if !sc.IsActive() || !sc.Date.Equal(date) {
			continue
		}
		c := timesheet.LateStartCandidate{Schedule: cloneSchedule(sc)}
		if t, ok := r.s.timesheets[tsKey(timesheet.Key{WorkerID: sc.WorkerID, AgencyID: sc.AgencyID, Date: date})]; ok {
			if t.AlertsSent.LateStart {
				continue
			}
			tc := cloneTimesheet(t)
			c.Timesheet = &tc
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Schedule.StartTime+out[i].Schedule.ID < out[j].Schedule.StartTime+out[j].Schedule.ID })
	return out, nil
}

func (r *TimesheetRepository) ListStartedByDate(_ context.Context, date time.Time) ([]timesheet.Timesheet, error) {
	return r.list(date, func(t timesheet.Timesheet) bool { return t.StartTime != nil }), nil
}

func (r *TimesheetRepository) ListOpenByDate(_ context.Context, date time.Time) ([]timesheet.Timesheet, error) {
	return r.list(date, func(t timesheet.Timesheet) bool {
		return t.StartTime != nil && t.EndTime == nil && !t.AlertsSent.MissingClockOut
	}), nil
}

func (r *TimesheetRepository) list(date time.Time, keep func(timesheet.Timesheet) bool) []timesheet.Timesheet {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []timesheet.Timesheet
	for _, t := range r.s.timesheets {
		if t.Date.Equal(date) && keep(t) {
			out = append(out, cloneTimesheet(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *TimesheetRepository) MarkAlertSent(_ context.Context, id string, delivery alert.Delivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for k, t := range r.s.timesheets {
		if t.ID != id {
			continue
		}
		if t.AlertsSent.Has(delivery.AlertType) {
			return alert.ErrAlreadySent
		}
		if err := t.AlertsSent.Set(delivery.AlertType); err != nil {
			return err
		}
		t.UpdatedAt = r.s.now()
		r.s.timesheets[k] = t
		delivery.RecordType = alert.RecordTimesheet
		delivery.RecordID = id
		r.s.recordDelivery(delivery)
		return nil
	}
	return timesheet.ErrTimesheetNotFound
}

func cloneTimesheet(t timesheet.Timesheet) timesheet.Timesheet {
	t.ScheduleID = clonePtr(t.ScheduleID)
	t.StartTime = clonePtr(t.StartTime)
	t.EndTime = clonePtr(t.EndTime)
	t.BreakStart = clonePtr(t.BreakStart)
	t.BreakEnd = clonePtr(t.BreakEnd)
	return t
}
