package schedule

import (
	"time"

	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
)

// CreateRequest seeds one planned shift.
type CreateRequest struct {
	WorkerID   string  `json:"worker_id"`
	AgencyID   string  `json:"agency_id"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`

	date time.Time
}

func (r *CreateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{Field: "worker_id", Message: "worker_id is required"})
	}
	if validator.IsEmpty(r.AgencyID) {
		errs = append(errs, validator.ValidationError{Field: "agency_id", Message: "agency_id is required"})
	}
	if d, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"})
	} else {
		r.date = d
	}
	if !validator.IsValidClock(r.StartTime) {
		errs = append(errs, validator.ValidationError{Field: "start_time", Message: "start_time must be HH:mm"})
	}
	if !validator.IsValidClock(r.EndTime) {
		errs = append(errs, validator.ValidationError{Field: "end_time", Message: "end_time must be HH:mm"})
	}
	if (r.BreakStart == nil) != (r.BreakEnd == nil) {
		errs = append(errs, validator.ValidationError{Field: "break_start", Message: "break_start and break_end go together"})
	}
	if r.BreakStart != nil && !validator.IsValidClock(*r.BreakStart) {
		errs = append(errs, validator.ValidationError{Field: "break_start", Message: "break_start must be HH:mm"})
	}
	if r.BreakEnd != nil && !validator.IsValidClock(*r.BreakEnd) {
		errs = append(errs, validator.ValidationError{Field: "break_end", Message: "break_end must be HH:mm"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToSchedule converts a validated request.
func (r CreateRequest) ToSchedule() Schedule {
	return Schedule{
		WorkerID:   r.WorkerID,
		AgencyID:   r.AgencyID,
		Date:       r.date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		BreakStart: r.BreakStart,
		BreakEnd:   r.BreakEnd,
		Status:     StatusActive,
	}
}

type ScheduleResponse struct {
	ID         string  `json:"id"`
	WorkerID   string  `json:"worker_id"`
	AgencyID   string  `json:"agency_id"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
	Status     Status  `json:"status"`
}

func ToResponse(s Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:         s.ID,
		WorkerID:   s.WorkerID,
		AgencyID:   s.AgencyID,
		Date:       s.Date.Format(time.DateOnly),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		BreakStart: s.BreakStart,
		BreakEnd:   s.BreakEnd,
		Status:     s.Status,
	}
}
