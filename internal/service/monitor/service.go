// Package monitor runs the recurring attendance and preparation checks that
// raise administrator alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/vprep/preparator-backend-go/internal/config"
	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/notification"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
	"github.com/vprep/preparator-backend-go/internal/pkg/cron"
)

const (
	JobLateStart           = "late_start_check"
	JobOvertimePreparation = "overtime_preparation_check"
	JobMissingClockOut     = "missing_clock_out_check"
	JobShiftDeviation      = "shift_deviation_check"
)

const markTimeout = 10 * time.Second

// Deps are the collaborators of the monitor. Now defaults to time.Now.
type Deps struct {
	Schedules    schedule.ScheduleRepository
	Timesheets   timesheet.TimesheetRepository
	Preparations preparation.PreparationRepository
	Agencies     agency.AgencyRepository
	Directory    user.Directory
	Dispatcher   notification.Dispatcher
	Now          func() time.Time
}

type Service struct {
	deps      Deps
	cfg       config.MonitorConfig
	loc       *time.Location
	defaults  agency.Thresholds
	scheduler *cron.Scheduler
}

func NewService(cfg config.MonitorConfig, deps Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Service{
		deps: deps,
		cfg:  cfg,
		loc:  cfg.Location(),
		defaults: agency.Thresholds{
			LateMinutes:        cfg.LateThresholdMinutes,
			OvertimeMinutes:    cfg.OvertimeThresholdMinutes,
			PreparationMinutes: cfg.PreparationThresholdMinutes,
		},
		scheduler: cron.NewScheduler(cfg.JobTimeout),
	}

	s.scheduler.AddJob(JobLateStart, cron.Every(cfg.LateStartInterval), s.activeHours(s.LateStartCheck))
	s.scheduler.AddJob(JobShiftDeviation, cron.Every(cfg.LateStartInterval), s.activeHours(s.ShiftDeviationCheck))
	s.scheduler.AddJob(JobOvertimePreparation, cron.Every(cfg.OvertimeInterval), s.activeHours(s.OvertimePreparationCheck))
	s.scheduler.AddJob(JobMissingClockOut, cron.DailyAt{Hour: cfg.ActiveHoursEnd, Location: s.loc}, s.MissingClockOutCheck)
	return s, nil
}

func (s *Service) Start() { s.scheduler.Start() }
func (s *Service) Stop()  { s.scheduler.Stop() }

func (s *Service) StartJob(name string) error { return s.scheduler.StartJob(name) }
func (s *Service) StopJob(name string) error  { return s.scheduler.StopJob(name) }

func (s *Service) Status() []cron.JobStatus { return s.scheduler.Status() }

// RunJob runs one iteration of name now. Interval jobs still honour the
// active-hours window.
func (s *Service) RunJob(ctx context.Context, name string) (int, error) {
	return s.scheduler.RunJob(ctx, name)
}

func (s *Service) now() time.Time {
	return s.deps.Now().In(s.loc)
}

func (s *Service) inActiveHours(t time.Time) bool {
	h := t.In(s.loc).Hour()
	return h >= s.cfg.ActiveHoursStart && h < s.cfg.ActiveHoursEnd
}

func (s *Service) activeHours(fn cron.JobFunc) cron.JobFunc {
	return func(ctx context.Context) (int, error) {
		if !s.inActiveHours(s.now()) {
			return 0, nil
		}
		return fn(ctx)
	}
}

func (s *Service) resolver(ctx context.Context) (*agency.Resolver, error) {
	settings, err := s.deps.Agencies.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agency settings: %w", err)
	}
	return agency.NewResolver(s.defaults, settings), nil
}

// process runs fn for one candidate under the candidate timeout. cont is
// false when the job must stop iterating.
func (s *Service) process(ctx context.Context, job, recordID string, fn func(ctx context.Context) (bool, error)) (sent, cont bool) {
	t := timeout.New[bool](timeout.Config{DefaultTimeout: s.cfg.CandidateTimeout})
	// Execute drops fn's result once the deadline passed, even when the
	// alert went out and its flag was written.
	delivered := false
	_, err := t.Execute(ctx, s.cfg.CandidateTimeout, func(ctx context.Context) (bool, error) {
		ok, err := fn(ctx)
		delivered = ok && err == nil
		return ok, err
	})
	if delivered {
		return true, ctx.Err() == nil
	}

	var transportErr *notification.TransportError
	switch {
	case err == nil:
		return false, true
	case errors.Is(err, notification.ErrConfigurationMissing):
		return false, false
	case errors.Is(err, notification.ErrSendInProgress):
		slog.DebugContext(ctx, "Monitor: alert send in progress elsewhere", "job", job, "record_id", recordID)
	case errors.As(err, &transportErr):
		slog.WarnContext(ctx, "Monitor: alert send failed, retrying next tick", "job", job, "record_id", recordID, "error", err)
	default:
		slog.ErrorContext(ctx, "Monitor: candidate failed", "job", job, "record_id", recordID, "error", err)
	}
	return false, ctx.Err() == nil
}

// deliver dispatches a and persists its dedup flag. It reports whether an
// email left in this call.
func (s *Service) deliver(ctx context.Context, a notification.Alert, mark func(context.Context, string, alert.Delivery) error) (bool, error) {
	res, err := s.deps.Dispatcher.Dispatch(ctx, a)
	if err != nil {
		return false, err
	}

	// The email is out: the flag write must not be cut by the candidate deadline.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()
	if err := mark(markCtx, a.RecordID, res.Delivery(a, s.deps.Now())); err != nil {
		if errors.Is(err, alert.ErrAlreadySent) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark %s sent: %w", a.Type, err)
	}
	return !res.Recovered, nil
}

func logSent(ctx context.Context, job string, sent, candidates int) {
	if sent > 0 {
		slog.InfoContext(ctx, "Monitor: alerts sent", "job", job, "count", sent, "candidates", candidates)
	}
}
