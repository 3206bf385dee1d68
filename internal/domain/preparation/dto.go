package preparation

import (
	"time"

	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
)

type StartRequest struct {
	WorkerID  string `json:"worker_id"`
	AgencyID  string `json:"agency_id"`
	VehicleID string `json:"vehicle_id"`
}

func (r *StartRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{Field: "worker_id", Message: "worker_id is required"})
	}
	if validator.IsEmpty(r.AgencyID) {
		errs = append(errs, validator.ValidationError{Field: "agency_id", Message: "agency_id is required"})
	}
	if validator.IsEmpty(r.VehicleID) {
		errs = append(errs, validator.ValidationError{Field: "vehicle_id", Message: "vehicle_id is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CompleteStepRequest struct {
	PreparationID string   `json:"-"`
	WorkerID      string   `json:"-"`
	Type          StepType `json:"-"`
	PhotoRef      *string  `json:"photo_ref,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

func (r *CompleteStepRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PreparationID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "preparation id is required"})
	}
	if validator.IsEmpty(string(r.Type)) {
		errs = append(errs, validator.ValidationError{Field: "type", Message: "step type is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CloseRequest completes or cancels a preparation.
type CloseRequest struct {
	PreparationID string  `json:"-"`
	WorkerID      string  `json:"-"`
	Notes         *string `json:"notes,omitempty"`
}

type StepResponse struct {
	Type        StepType   `json:"type"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PhotoRef    *string    `json:"photo_ref,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

type PreparationResponse struct {
	ID                     string         `json:"id"`
	WorkerID               string         `json:"worker_id"`
	AgencyID               string         `json:"agency_id"`
	VehicleID              string         `json:"vehicle_id"`
	Status                 Status         `json:"status"`
	StartTime              time.Time      `json:"start_time"`
	EndTime                *time.Time     `json:"end_time,omitempty"`
	Steps                  []StepResponse `json:"steps"`
	Progress               float64        `json:"progress"`
	CurrentDurationMinutes int            `json:"current_duration_minutes"`
	TotalTimeMinutes       *int           `json:"total_time_minutes,omitempty"`
	IsOnTime               *bool          `json:"is_on_time,omitempty"`
	Notes                  *string        `json:"notes,omitempty"`
}

func ToResponse(p Preparation, now time.Time) PreparationResponse {
	steps := make([]StepResponse, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = StepResponse{
			Type:        s.Type,
			Completed:   s.Completed,
			CompletedAt: s.CompletedAt,
			PhotoRef:    s.PhotoRef,
			Notes:       s.Notes,
		}
	}
	return PreparationResponse{
		ID:                     p.ID,
		WorkerID:               p.WorkerID,
		AgencyID:               p.AgencyID,
		VehicleID:              p.VehicleID,
		Status:                 p.Status,
		StartTime:              p.StartTime,
		EndTime:                p.EndTime,
		Steps:                  steps,
		Progress:               p.Progress(),
		CurrentDurationMinutes: int(p.CurrentDuration(now) / time.Minute),
		TotalTimeMinutes:       p.TotalTimeMinutes,
		IsOnTime:               p.IsOnTime,
		Notes:                  p.Notes,
	}
}
