package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/handler/http/response"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
)

type TimesheetHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	GetToday(w http.ResponseWriter, r *http.Request)
}

type timesheetHandlerImpl struct {
	timesheetService timesheet.TimesheetService
}

func NewTimesheetHandler(timesheetService timesheet.TimesheetService) TimesheetHandler {
	return &timesheetHandlerImpl{
		timesheetService: timesheetService,
	}
}

// clockRequest builds the request from the token and an optional body
// carrying agency_id.
func (h *timesheetHandlerImpl) clockRequest(w http.ResponseWriter, r *http.Request) (timesheet.ClockRequest, bool) {
	claims, err := jwt.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return timesheet.ClockRequest{}, false
	}

	var body struct {
		AgencyID string `json:"agency_id"`
	}
	if r.Method != http.MethodGet {
		if err := decodeBody(r, &body); err != nil {
			slog.Error("Failed to decode clock request", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return timesheet.ClockRequest{}, false
		}
	} else {
		body.AgencyID = r.URL.Query().Get("agency_id")
	}

	req := timesheet.ClockRequest{WorkerID: claims.UserID, AgencyID: agencyFor(claims, body.AgencyID)}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return timesheet.ClockRequest{}, false
	}
	return req, true
}

type clockAction func(ctx context.Context, req timesheet.ClockRequest) (timesheet.TimesheetResponse, error)

func (h *timesheetHandlerImpl) clock(w http.ResponseWriter, r *http.Request, message string, fn clockAction) {
	req, ok := h.clockRequest(w, r)
	if !ok {
		return
	}

	result, err := fn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, result)
}

// ClockIn implements TimesheetHandler.
func (h *timesheetHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.clock(w, r, "Clock in successful", h.timesheetService.ClockIn)
}

// StartBreak implements TimesheetHandler.
func (h *timesheetHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	h.clock(w, r, "Break started", h.timesheetService.StartBreak)
}

// EndBreak implements TimesheetHandler.
func (h *timesheetHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	h.clock(w, r, "Break ended", h.timesheetService.EndBreak)
}

// ClockOut implements TimesheetHandler.
func (h *timesheetHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.clock(w, r, "Clock out successful", h.timesheetService.ClockOut)
}

// GetToday implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetToday(w http.ResponseWriter, r *http.Request) {
	h.clock(w, r, "", h.timesheetService.GetToday)
}
