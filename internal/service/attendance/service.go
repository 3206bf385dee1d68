package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/pkg/timecalc"
)

type action func(t *timesheet.Timesheet, now time.Time, sched *schedule.Schedule) error

type TimesheetServiceImpl struct {
	timesheets timesheet.TimesheetRepository
	schedules  schedule.ScheduleRepository
	loc        *time.Location
	now        func() time.Time
}

func NewTimesheetService(
	timesheets timesheet.TimesheetRepository,
	schedules schedule.ScheduleRepository,
	loc *time.Location,
	now func() time.Time,
) timesheet.TimesheetService {
	if now == nil {
		now = time.Now
	}
	return &TimesheetServiceImpl{
		timesheets: timesheets,
		schedules:  schedules,
		loc:        loc,
		now:        now,
	}
}

// ClockIn implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) ClockIn(ctx context.Context, req timesheet.ClockRequest) (timesheet.TimesheetResponse, error) {
	return s.apply(ctx, req, "clock in", false, (*timesheet.Timesheet).ClockIn)
}

func (s *TimesheetServiceImpl) StartBreak(ctx context.Context, req timesheet.ClockRequest) (timesheet.TimesheetResponse, error) {
	return s.apply(ctx, req, "break start", false, (*timesheet.Timesheet).StartBreak)
}

func (s *TimesheetServiceImpl) EndBreak(ctx context.Context, req timesheet.ClockRequest) (timesheet.TimesheetResponse, error) {
	return s.apply(ctx, req, "break end", true, (*timesheet.Timesheet).EndBreak)
}

// ClockOut closes today's timesheet, or yesterday's when the shift crossed
// midnight and is still open.
func (s *TimesheetServiceImpl) ClockOut(ctx context.Context, req timesheet.ClockRequest) (timesheet.TimesheetResponse, error) {
	return s.apply(ctx, req, "clock out", true, (*timesheet.Timesheet).ClockOut)
}

func (s *TimesheetServiceImpl) GetToday(ctx context.Context, req timesheet.ClockRequest) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	key := s.keyFor(req, s.now().In(s.loc))

	ts, err := s.timesheets.GetByKey(ctx, key)
	if err != nil {
		return timesheet.TimesheetResponse{}, fmt.Errorf("failed to get timesheet: %w", err)
	}
	if ts == nil {
		return timesheet.TimesheetResponse{}, timesheet.ErrTimesheetNotFound
	}
	return timesheet.ToResponse(*ts), nil
}

func (s *TimesheetServiceImpl) apply(ctx context.Context, req timesheet.ClockRequest, name string, carryOver bool, fn action) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	now := s.now().In(s.loc)

	key := s.keyFor(req, now)
	if carryOver {
		var err error
		if key, err = s.openKey(ctx, key); err != nil {
			return timesheet.TimesheetResponse{}, err
		}
	}

	sched, err := s.schedules.GetActiveSchedule(ctx, key.WorkerID, key.AgencyID, key.Date)
	if err != nil {
		return timesheet.TimesheetResponse{}, fmt.Errorf("failed to get active schedule: %w", err)
	}

	ts, err := s.timesheets.Mutate(ctx, key, func(t *timesheet.Timesheet) error {
		return fn(t, now, sched)
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, fmt.Errorf("%s: %w", name, err)
	}

	slog.InfoContext(ctx, "Timesheet updated",
		"action", name,
		"worker_id", ts.WorkerID,
		"agency_id", ts.AgencyID,
		"date", ts.Date.Format(time.DateOnly),
		"state", ts.State(),
		"start_delay", ts.Delays.Start,
	)
	return timesheet.ToResponse(ts), nil
}

// openKey returns yesterday's key when today has no started timesheet and
// yesterday's is still open.
func (s *TimesheetServiceImpl) openKey(ctx context.Context, today timesheet.Key) (timesheet.Key, error) {
	ts, err := s.timesheets.GetByKey(ctx, today)
	if err != nil {
		return today, fmt.Errorf("failed to get timesheet: %w", err)
	}
	if ts != nil && ts.StartTime != nil {
		return today, nil
	}

	yesterday := today
	yesterday.Date = today.Date.AddDate(0, 0, -1)
	prev, err := s.timesheets.GetByKey(ctx, yesterday)
	if err != nil {
		return today, fmt.Errorf("failed to get previous timesheet: %w", err)
	}
	if prev != nil && prev.StartTime != nil && prev.EndTime == nil {
		return yesterday, nil
	}
	return today, nil
}

func (s *TimesheetServiceImpl) keyFor(req timesheet.ClockRequest, now time.Time) timesheet.Key {
	return timesheet.Key{
		WorkerID: req.WorkerID,
		AgencyID: req.AgencyID,
		Date:     timecalc.DateOf(now),
	}
}
