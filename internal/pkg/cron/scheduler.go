package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

var (
	ErrJobNotFound   = errors.New("cron job not found")
	ErrJobRunning    = errors.New("cron job already running")
	ErrJobNotRunning = errors.New("cron job not running")
	ErrJobPanicked   = errors.New("cron job panicked")
)

// JobFunc runs one iteration and reports how many items it handled.
type JobFunc func(ctx context.Context) (int, error)

// Job represents a scheduled job
type Job struct {
	Name    string
	Trigger Trigger
	Fn      JobFunc
}

// JobStatus is a snapshot of one job handle.
type JobStatus struct {
	Name      string     `json:"name"`
	Trigger   string     `json:"trigger"`
	Running   bool       `json:"running"`
	Runs      int        `json:"runs"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastCount int        `json:"last_count"`
	LastError string     `json:"last_error,omitempty"`
}

type handle struct {
	job    Job
	cancel context.CancelFunc
	done   chan struct{}

	runs      int
	lastRunAt time.Time
	nextRunAt time.Time
	lastCount int
	lastError string
}

// Scheduler manages named jobs that can be started and stopped one by one.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*handle
	timeout time.Duration
	now     func() time.Time
}

// NewScheduler creates a scheduler. Every run gets its own context bounded
// by timeout; zero disables the bound.
func NewScheduler(timeout time.Duration) *Scheduler {
	return &Scheduler{
		jobs:    make(map[string]*handle),
		timeout: timeout,
		now:     time.Now,
	}
}

// AddJob adds a job to the scheduler. A job with the same name is replaced
// and must not be running.
func (s *Scheduler) AddJob(name string, trigger Trigger, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[name] = &handle{job: Job{Name: name, Trigger: trigger, Fn: fn}}
	slog.Info("Cron job registered", "name", name, "trigger", trigger.String())
}

// Start begins running all scheduled jobs that are not already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.jobs {
		if h.cancel == nil {
			s.startLocked(h)
		}
	}
	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop gracefully stops all scheduled jobs and waits for in-flight runs.
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.mu.Lock()
	var pending []chan struct{}
	for _, h := range s.jobs {
		if done := s.stopLocked(h); done != nil {
			pending = append(pending, done)
		}
	}
	s.mu.Unlock()

	for _, done := range pending {
		<-done
	}
	slog.Info("Cron scheduler stopped")
}

func (s *Scheduler) StartJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	if h.cancel != nil {
		return ErrJobRunning
	}
	s.startLocked(h)
	return nil
}

func (s *Scheduler) StopJob(name string) error {
	s.mu.Lock()
	h, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	done := s.stopLocked(h)
	s.mu.Unlock()

	if done == nil {
		return ErrJobNotRunning
	}
	<-done
	return nil
}

// RunJob runs one iteration now, outside the job's schedule.
func (s *Scheduler) RunJob(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	h, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, ErrJobNotFound
	}
	return s.executeJob(ctx, h)
}

// Status returns one entry per job, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, h := range s.jobs {
		st := JobStatus{
			Name:      h.job.Name,
			Trigger:   h.job.Trigger.String(),
			Running:   h.cancel != nil,
			Runs:      h.runs,
			LastCount: h.lastCount,
			LastError: h.lastError,
		}
		if !h.lastRunAt.IsZero() {
			t := h.lastRunAt
			st.LastRunAt = &t
		}
		if st.Running && !h.nextRunAt.IsZero() {
			t := h.nextRunAt
			st.NextRunAt = &t
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) startLocked(h *handle) {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go s.runJob(ctx, h, h.done)
}

func (s *Scheduler) stopLocked(h *handle) chan struct{} {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	done := h.done
	h.cancel = nil
	h.done = nil
	return done
}

// runJob runs a single job on its schedule
func (s *Scheduler) runJob(ctx context.Context, h *handle, done chan struct{}) {
	defer close(done)

	// Interval jobs run immediately on start
	if _, ok := h.job.Trigger.(Every); ok {
		_, _ = s.executeJob(ctx, h)
	}

	for {
		now := s.now()
		next := h.job.Trigger.Next(now)
		s.mu.Lock()
		h.nextRunAt = next
		s.mu.Unlock()

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Cron job stopping", "name", h.job.Name)
			return
		case <-timer.C:
			_, _ = s.executeJob(ctx, h)
		}
	}
}

// executeJob executes a job and logs results
func (s *Scheduler) executeJob(ctx context.Context, h *handle) (int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	slog.Debug("Cron job starting", "name", h.job.Name)

	count, err := safeRun(ctx, h.job)

	s.mu.Lock()
	h.runs++
	h.lastRunAt = start
	h.lastCount = count
	h.lastError = ""
	if err != nil {
		h.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("Cron job failed", "name", h.job.Name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("Cron job completed", "name", h.job.Name, "count", count, "duration", time.Since(start))
	}
	return count, err
}

// safeRun turns a panic in fn into an error so one job cannot take down the
// scheduler.
func safeRun(ctx context.Context, job Job) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Cron job panicked", "name", job.Name, "panic", r, "stack", string(debug.Stack()))
			count, err = 0, fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return job.Fn(ctx)
}
