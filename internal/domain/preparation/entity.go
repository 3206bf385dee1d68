package preparation

import (
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type StepType string

const (
	StepExterior StepType = "exterior"
	StepInterior StepType = "interior"
	StepPicture  StepType = "picture"
	StepParking  StepType = "parking"
)

// DefaultSteps is the checklist created with every preparation, in order.
var DefaultSteps = []StepType{StepExterior, StepInterior, StepPicture, StepParking}

func (s StepType) Valid() bool {
	for _, t := range DefaultSteps {
		if s == t {
			return true
		}
	}
	return false
}

type Step struct {
	Type        StepType
	Completed   bool
	CompletedAt *time.Time
	PhotoRef    *string
	Notes       *string
}

// AlertsSent mirrors the timesheet dedup flags for preparation alerts.
type AlertsSent struct {
	Overtime bool
}

func (a AlertsSent) Has(t alert.Type) bool {
	return t == alert.TypeOvertimePreparation && a.Overtime
}

func (a *AlertsSent) Set(t alert.Type) error {
	if t != alert.TypeOvertimePreparation {
		return alert.ErrUnknownType
	}
	a.Overtime = true
	return nil
}

// Preparation is a timed, multi-step vehicle preparation bound to a worker.
type Preparation struct {
	ID               string
	WorkerID         string
	AgencyID         string
	VehicleID        string
	Status           Status
	StartTime        time.Time
	EndTime          *time.Time
	Steps            []Step
	TotalTimeMinutes *int
	IsOnTime         *bool
	Notes            *string
	AlertsSent       AlertsSent
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// New starts a preparation with the default checklist.
func New(workerID, agencyID, vehicleID string, now time.Time) Preparation {
	steps := make([]Step, len(DefaultSteps))
	for i, t := range DefaultSteps {
		steps[i] = Step{Type: t}
	}
	return Preparation{
		WorkerID:  workerID,
		AgencyID:  agencyID,
		VehicleID: vehicleID,
		Status:    StatusInProgress,
		StartTime: now,
		Steps:     steps,
	}
}

// Progress is the completed fraction of steps, in [0, 1].
func (p Preparation) Progress() float64 {
	if len(p.Steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range p.Steps {
		if s.Completed {
			done++
		}
	}
	return float64(done) / float64(len(p.Steps))
}

// CurrentDuration is now - start while in progress, or the final span.
func (p Preparation) CurrentDuration(now time.Time) time.Duration {
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	if now.Before(p.StartTime) {
		return 0
	}
	return now.Sub(p.StartTime)
}

func (p Preparation) step(t StepType) (*Step, bool) {
	for i := range p.Steps {
		if p.Steps[i].Type == t {
			return &p.Steps[i], true
		}
	}
	return nil, false
}
