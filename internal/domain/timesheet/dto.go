package timesheet

import (
	"time"

	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
)

// ClockRequest identifies the worker and agency of a clock action.
type ClockRequest struct {
	WorkerID string `json:"worker_id"`
	AgencyID string `json:"agency_id"`
}

func (r *ClockRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id is required",
		})
	}

	if validator.IsEmpty(r.AgencyID) {
		errs = append(errs, validator.ValidationError{
			Field:   "agency_id",
			Message: "agency_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DelaysResponse struct {
	StartDelay      int `json:"start_delay"`
	EndDelay        int `json:"end_delay"`
	BreakStartDelay int `json:"break_start_delay"`
	BreakEndDelay   int `json:"break_end_delay"`
}

type TimesheetResponse struct {
	ID                 string         `json:"id"`
	WorkerID           string         `json:"worker_id"`
	AgencyID           string         `json:"agency_id"`
	Date               string         `json:"date"`
	ScheduleID         *string        `json:"schedule_id,omitempty"`
	StartTime          *time.Time     `json:"start_time,omitempty"`
	EndTime            *time.Time     `json:"end_time,omitempty"`
	BreakStart         *time.Time     `json:"break_start,omitempty"`
	BreakEnd           *time.Time     `json:"break_end,omitempty"`
	Delays             DelaysResponse `json:"delays"`
	TotalWorkedMinutes int            `json:"total_worked_minutes"`
	TotalBreakMinutes  int            `json:"total_break_minutes"`
	Status             Status         `json:"status"`
	State              State          `json:"state"`
}

func ToResponse(t Timesheet) TimesheetResponse {
	return TimesheetResponse{
		ID:         t.ID,
		WorkerID:   t.WorkerID,
		AgencyID:   t.AgencyID,
		Date:       t.Date.Format("2006-01-02"),
		ScheduleID: t.ScheduleID,
		StartTime:  t.StartTime,
		EndTime:    t.EndTime,
		BreakStart: t.BreakStart,
		BreakEnd:   t.BreakEnd,
		Delays: DelaysResponse{
			StartDelay:      t.Delays.Start,
			EndDelay:        t.Delays.End,
			BreakStartDelay: t.Delays.BreakStart,
			BreakEndDelay:   t.Delays.BreakEnd,
		},
		TotalWorkedMinutes: t.TotalWorkedMinutes,
		TotalBreakMinutes:  t.TotalBreakMinutes,
		Status:             t.Status,
		State:              t.State(),
	}
}
