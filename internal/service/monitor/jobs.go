package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/notification"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/pkg/timecalc"
)

// LateStartCheck alerts on today's active schedules whose worker is late,
// whether or not they have clocked in since.
func (s *Service) LateStartCheck(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.deps.Timesheets.ListLateStartCandidates(ctx, timecalc.DateOf(now))
	if err != nil {
		return 0, fmt.Errorf("failed to list late start candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	resolver, err := s.resolver(ctx)
	if err != nil {
		return 0, err
	}

	lk := s.newLookup()
	sent := 0
	for _, c := range candidates {
		th := resolver.For(c.Schedule.AgencyID)
		ok, cont := s.process(ctx, JobLateStart, c.Schedule.ID, func(ctx context.Context) (bool, error) {
			return s.lateStart(ctx, lk, c, th, now)
		})
		if ok {
			sent++
		}
		if !cont {
			break
		}
	}
	logSent(ctx, JobLateStart, sent, len(candidates))
	return sent, nil
}

func (s *Service) lateStart(ctx context.Context, lk *lookup, c timesheet.LateStartCandidate, th agency.Thresholds, now time.Time) (bool, error) {
	ts := c.Timesheet
	clockedIn := ts != nil && ts.StartTime != nil

	delay := timecalc.LateStartMinutes(&c.Schedule, now)
	if clockedIn {
		delay = ts.Delays.Start
	}
	if timecalc.ClassifyPunctuality(delay, th.LateMinutes) != timecalc.Late {
		return false, nil
	}

	if !clockedIn {
		key := timesheet.Key{WorkerID: c.Schedule.WorkerID, AgencyID: c.Schedule.AgencyID, Date: c.Schedule.Date}
		rec, err := s.deps.Timesheets.RecordLateStart(ctx, key, c.Schedule.ID, delay)
		if errors.Is(err, timesheet.ErrAlreadyClockedIn) {
			// the next tick sees the clock-in and its real delay
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to record late start: %w", err)
		}
		ts = &rec
	}
	if ts.AlertsSent.LateStart {
		return false, nil
	}

	p := lk.payload(ctx, c.Schedule.WorkerID, c.Schedule.AgencyID, c.Schedule.Date)
	p.DelayMinutes = &delay
	p.ScheduledTime = c.Schedule.StartTime
	p.ActualTime = lk.clock(ts.StartTime)

	return s.deliver(ctx, notification.Alert{
		Type:       alert.TypeLateStart,
		RecordType: alert.RecordTimesheet,
		RecordID:   ts.ID,
		Payload:    p,
	}, s.deps.Timesheets.MarkAlertSent)
}

// OvertimePreparationCheck alerts once per in-progress preparation that ran
// past its agency's overtime threshold.
func (s *Service) OvertimePreparationCheck(ctx context.Context) (int, error) {
	now := s.now()
	resolver, err := s.resolver(ctx)
	if err != nil {
		return 0, err
	}

	// widest net, each candidate is then checked against its own agency
	cutoff := now.Add(-time.Duration(resolver.MinOvertime()) * time.Minute)
	candidates, err := s.deps.Preparations.ListOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue preparations: %w", err)
	}

	lk := s.newLookup()
	sent := 0
	for _, p := range candidates {
		th := resolver.For(p.AgencyID)
		ok, cont := s.process(ctx, JobOvertimePreparation, p.ID, func(ctx context.Context) (bool, error) {
			return s.overtime(ctx, lk, p, th, now)
		})
		if ok {
			sent++
		}
		if !cont {
			break
		}
	}
	logSent(ctx, JobOvertimePreparation, sent, len(candidates))
	return sent, nil
}

func (s *Service) overtime(ctx context.Context, lk *lookup, p preparation.Preparation, th agency.Thresholds, now time.Time) (bool, error) {
	if p.Status != preparation.StatusInProgress || p.AlertsSent.Overtime {
		return false, nil
	}
	if !timecalc.IsOvertime(p.StartTime, now, th.OvertimeMinutes) {
		return false, nil
	}

	elapsed := timecalc.ElapsedMinutes(p.StartTime, now, nil)
	payload := lk.payload(ctx, p.WorkerID, p.AgencyID, timecalc.DateOf(p.StartTime.In(s.loc)))
	payload.DurationMinutes = &elapsed
	payload.ActualTime = lk.clock(&p.StartTime)
	payload.VehicleID = p.VehicleID

	return s.deliver(ctx, notification.Alert{
		Type:       alert.TypeOvertimePreparation,
		RecordType: alert.RecordPreparation,
		RecordID:   p.ID,
		Payload:    payload,
	}, s.deps.Preparations.MarkAlertSent)
}

// MissingClockOutCheck alerts on yesterday's timesheets that were never
// clocked out.
func (s *Service) MissingClockOutCheck(ctx context.Context) (int, error) {
	yesterday := timecalc.DateOf(s.now()).AddDate(0, 0, -1)
	candidates, err := s.deps.Timesheets.ListOpenByDate(ctx, yesterday)
	if err != nil {
		return 0, fmt.Errorf("failed to list open timesheets: %w", err)
	}

	lk := s.newLookup()
	sent := 0
	for _, ts := range candidates {
		ok, cont := s.process(ctx, JobMissingClockOut, ts.ID, func(ctx context.Context) (bool, error) {
			return s.missingClockOut(ctx, lk, ts)
		})
		if ok {
			sent++
		}
		if !cont {
			break
		}
	}
	logSent(ctx, JobMissingClockOut, sent, len(candidates))
	return sent, nil
}

func (s *Service) missingClockOut(ctx context.Context, lk *lookup, ts timesheet.Timesheet) (bool, error) {
	if ts.StartTime == nil || ts.EndTime != nil || ts.AlertsSent.MissingClockOut {
		return false, nil
	}

	p := lk.payload(ctx, ts.WorkerID, ts.AgencyID, ts.Date)
	if sc := lk.schedule(ctx, ts.ScheduleID); sc != nil {
		p.ScheduledTime = sc.EndTime
	}
	p.ActualTime = lk.clock(ts.StartTime)

	return s.deliver(ctx, notification.Alert{
		Type:       alert.TypeMissingClockOut,
		RecordType: alert.RecordTimesheet,
		RecordID:   ts.ID,
		Payload:    p,
	}, s.deps.Timesheets.MarkAlertSent)
}

// ShiftDeviationCheck alerts on today's breaks that overran the planned
// break end and on shifts that ended past the planned end, both by at least
// the agency's lateness threshold.
func (s *Service) ShiftDeviationCheck(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.deps.Timesheets.ListStartedByDate(ctx, timecalc.DateOf(now))
	if err != nil {
		return 0, fmt.Errorf("failed to list started timesheets: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	resolver, err := s.resolver(ctx)
	if err != nil {
		return 0, err
	}

	lk := s.newLookup()
	sent := 0
	for _, ts := range candidates {
		th := resolver.For(ts.AgencyID)
		checks := []func(context.Context) (bool, error){
			func(ctx context.Context) (bool, error) { return s.longBreak(ctx, lk, ts, th, now) },
			func(ctx context.Context) (bool, error) { return s.lateEnd(ctx, lk, ts, th) },
		}
		stop := false
		for _, check := range checks {
			ok, cont := s.process(ctx, JobShiftDeviation, ts.ID, check)
			if ok {
				sent++
			}
			if !cont {
				stop = true
				break
			}
		}
		if stop {
			break
		}
	}
	logSent(ctx, JobShiftDeviation, sent, len(candidates))
	return sent, nil
}

func (s *Service) longBreak(ctx context.Context, lk *lookup, ts timesheet.Timesheet, th agency.Thresholds, now time.Time) (bool, error) {
	if ts.BreakStart == nil || ts.AlertsSent.LongBreak {
		return false, nil
	}
	sc := lk.schedule(ctx, ts.ScheduleID)
	if sc == nil {
		return false, nil
	}
	_, plannedEnd, ok := sc.BreakWindow(s.loc)
	if !ok {
		return false, nil
	}

	var overrun int
	breakEnd := now
	switch {
	case ts.BreakEnd != nil:
		overrun = ts.Delays.BreakEnd
		breakEnd = *ts.BreakEnd
	case ts.EndTime == nil:
		overrun = timecalc.DelayMinutes(plannedEnd, now)
	default:
		return false, nil
	}
	if overrun < th.LateMinutes {
		return false, nil
	}

	duration := timecalc.ElapsedMinutes(*ts.BreakStart, breakEnd, nil)
	p := lk.payload(ctx, ts.WorkerID, ts.AgencyID, ts.Date)
	p.DelayMinutes = &overrun
	p.DurationMinutes = &duration
	p.ScheduledTime = *sc.BreakEnd
	p.ActualTime = lk.clock(ts.BreakEnd)

	return s.deliver(ctx, notification.Alert{
		Type:       alert.TypeLongBreak,
		RecordType: alert.RecordTimesheet,
		RecordID:   ts.ID,
		Payload:    p,
	}, s.deps.Timesheets.MarkAlertSent)
}

func (s *Service) lateEnd(ctx context.Context, lk *lookup, ts timesheet.Timesheet, th agency.Thresholds) (bool, error) {
	if ts.EndTime == nil || ts.AlertsSent.LateEnd || ts.Delays.End < th.LateMinutes {
		return false, nil
	}

	delay := ts.Delays.End
	p := lk.payload(ctx, ts.WorkerID, ts.AgencyID, ts.Date)
	p.DelayMinutes = &delay
	if sc := lk.schedule(ctx, ts.ScheduleID); sc != nil {
		p.ScheduledTime = sc.EndTime
	}
	p.ActualTime = lk.clock(ts.EndTime)

	return s.deliver(ctx, notification.Alert{
		Type:       alert.TypeLateEnd,
		RecordType: alert.RecordTimesheet,
		RecordID:   ts.ID,
		Payload:    p,
	}, s.deps.Timesheets.MarkAlertSent)
}
