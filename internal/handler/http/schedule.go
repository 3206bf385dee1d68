package http

import (
	"log/slog"
	"net/http"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/handler/http/response"
)

type ScheduleHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
}

type scheduleHandlerImpl struct {
	schedules schedule.ScheduleRepository
}

// NewScheduleHandler serves schedule seeding. Planning itself is owned by
// another service, so this writes straight to the repository.
func NewScheduleHandler(schedules schedule.ScheduleRepository) ScheduleHandler {
	return &scheduleHandlerImpl{schedules: schedules}
}

// Create implements ScheduleHandler.
func (h *scheduleHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req schedule.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		slog.Error("Failed to decode schedule request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	created, err := h.schedules.Create(r.Context(), req.ToSchedule())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Schedule created", schedule.ToResponse(created))
}
