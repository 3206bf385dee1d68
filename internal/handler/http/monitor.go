package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/handler/http/response"
	"github.com/vprep/preparator-backend-go/internal/pkg/cron"
	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
)

// JobController is the operational surface of the monitor.
type JobController interface {
	Status() []cron.JobStatus
	RunJob(ctx context.Context, name string) (int, error)
	StartJob(name string) error
	StopJob(name string) error
}

type MonitorHandler interface {
	ListJobs(w http.ResponseWriter, r *http.Request)
	RunJob(w http.ResponseWriter, r *http.Request)
	StartJob(w http.ResponseWriter, r *http.Request)
	StopJob(w http.ResponseWriter, r *http.Request)
	ListDeliveries(w http.ResponseWriter, r *http.Request)
}

type monitorHandlerImpl struct {
	jobs       JobController
	deliveries alert.DeliveryRepository
}

func NewMonitorHandler(jobs JobController, deliveries alert.DeliveryRepository) MonitorHandler {
	return &monitorHandlerImpl{jobs: jobs, deliveries: deliveries}
}

// ListJobs implements MonitorHandler.
func (h *monitorHandlerImpl) ListJobs(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.jobs.Status())
}

type runJobResponse struct {
	Job  string `json:"job"`
	Sent int    `json:"sent"`
}

// RunJob implements MonitorHandler.
func (h *monitorHandlerImpl) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	sent, err := h.jobs.RunJob(r.Context(), name)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Job executed", runJobResponse{Job: name, Sent: sent})
}

// StartJob implements MonitorHandler.
func (h *monitorHandlerImpl) StartJob(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.StartJob(chi.URLParam(r, "name")); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Job started", nil)
}

// StopJob implements MonitorHandler.
func (h *monitorHandlerImpl) StopJob(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.StopJob(chi.URLParam(r, "name")); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Job stopped", nil)
}

type deliveryResponse struct {
	ID         string `json:"id"`
	AlertType  string `json:"alert_type"`
	MessageID  string `json:"message_id"`
	Recipients int    `json:"recipients"`
	SentAt     string `json:"sent_at"`
}

// ListDeliveries implements MonitorHandler.
func (h *monitorHandlerImpl) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	recordType := alert.RecordType(chi.URLParam(r, "recordType"))
	if recordType != alert.RecordTimesheet && recordType != alert.RecordPreparation {
		response.BadRequest(w, "record type must be timesheet or preparation", nil)
		return
	}

	recordID := chi.URLParam(r, "recordID")
	if !validator.IsValidUUID(recordID) {
		response.BadRequest(w, "record id must be a UUID", nil)
		return
	}

	list, err := h.deliveries.ListByRecord(r.Context(), recordType, recordID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	out := make([]deliveryResponse, len(list))
	for i, d := range list {
		out[i] = deliveryResponse{
			ID:         d.ID,
			AlertType:  string(d.AlertType),
			MessageID:  d.MessageID,
			Recipients: d.Recipients,
			SentAt:     d.SentAt.Format(time.RFC3339),
		}
	}
	response.Success(w, out)
}
