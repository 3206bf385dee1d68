package agency

import (
	"errors"
	"time"
)

var ErrAgencyNotFound = errors.New("agency not found")

type Agency struct {
	ID        string
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings holds per-agency overrides. Nil fields fall back to defaults.
type Settings struct {
	AgencyID                    string
	LateThresholdMinutes        *int
	OvertimeThresholdMinutes    *int
	PreparationThresholdMinutes *int
}

// Thresholds are the effective monitor thresholds for one agency.
type Thresholds struct {
	LateMinutes        int
	OvertimeMinutes    int
	PreparationMinutes int
}

// Apply overlays s on defaults.
func (s Settings) Apply(defaults Thresholds) Thresholds {
	t := defaults
	if s.LateThresholdMinutes != nil && *s.LateThresholdMinutes > 0 {
		t.LateMinutes = *s.LateThresholdMinutes
	}
	if s.OvertimeThresholdMinutes != nil && *s.OvertimeThresholdMinutes > 0 {
		t.OvertimeMinutes = *s.OvertimeThresholdMinutes
	}
	if s.PreparationThresholdMinutes != nil && *s.PreparationThresholdMinutes > 0 {
		t.PreparationMinutes = *s.PreparationThresholdMinutes
	}
	return t
}

// Resolver answers threshold lookups from one snapshot of settings, so a job
// run reads agency_settings once.
type Resolver struct {
	defaults  Thresholds
	overrides map[string]Thresholds
}

func NewResolver(defaults Thresholds, settings []Settings) *Resolver {
	r := &Resolver{defaults: defaults, overrides: make(map[string]Thresholds, len(settings))}
	for _, s := range settings {
		r.overrides[s.AgencyID] = s.Apply(defaults)
	}
	return r
}

func (r *Resolver) For(agencyID string) Thresholds {
	if t, ok := r.overrides[agencyID]; ok {
		return t
	}
	return r.defaults
}

// MinOvertime is the smallest overtime threshold over all agencies.
func (r *Resolver) MinOvertime() int {
	m := r.defaults.OvertimeMinutes
	for _, t := range r.overrides {
		if t.OvertimeMinutes < m {
			m = t.OvertimeMinutes
		}
	}
	return m
}
