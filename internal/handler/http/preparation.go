package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/handler/http/response"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
)

type PreparationHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	CompleteStep(w http.ResponseWriter, r *http.Request)
	Complete(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	GetCurrent(w http.ResponseWriter, r *http.Request)
}

type preparationHandlerImpl struct {
	preparationService preparation.PreparationService
}

func NewPreparationHandler(preparationService preparation.PreparationService) PreparationHandler {
	return &preparationHandlerImpl{
		preparationService: preparationService,
	}
}

// Start implements PreparationHandler.
func (h *preparationHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req preparation.StartRequest
	if err := decodeBody(r, &req); err != nil {
		slog.Error("Failed to decode start preparation request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.WorkerID = claims.UserID
	req.AgencyID = agencyFor(claims, req.AgencyID)

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.preparationService.Start(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Preparation started", result)
}

// CompleteStep implements PreparationHandler.
func (h *preparationHandlerImpl) CompleteStep(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req preparation.CompleteStepRequest
	if err := decodeBody(r, &req); err != nil {
		slog.Error("Failed to decode complete step request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.PreparationID = chi.URLParam(r, "id")
	if !validator.IsValidUUID(req.PreparationID) {
		response.HandleError(w, preparation.ErrPreparationNotFound)
		return
	}
	req.Type = preparation.StepType(chi.URLParam(r, "type"))
	req.WorkerID = claims.UserID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.preparationService.CompleteStep(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Step completed", result)
}

func (h *preparationHandlerImpl) closeRequest(w http.ResponseWriter, r *http.Request) (preparation.CloseRequest, bool) {
	claims, err := jwt.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return preparation.CloseRequest{}, false
	}

	var req preparation.CloseRequest
	if err := decodeBody(r, &req); err != nil {
		slog.Error("Failed to decode close preparation request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return preparation.CloseRequest{}, false
	}
	req.PreparationID = chi.URLParam(r, "id")
	if !validator.IsValidUUID(req.PreparationID) {
		response.HandleError(w, preparation.ErrPreparationNotFound)
		return preparation.CloseRequest{}, false
	}
	req.WorkerID = claims.UserID
	return req, true
}

// Complete implements PreparationHandler.
func (h *preparationHandlerImpl) Complete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.closeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.preparationService.Complete(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Preparation completed", result)
}

// Cancel implements PreparationHandler.
func (h *preparationHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ok := h.closeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.preparationService.Cancel(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Preparation cancelled", result)
}

// Get implements PreparationHandler.
func (h *preparationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.HandleError(w, preparation.ErrPreparationNotFound)
		return
	}

	result, err := h.preparationService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetCurrent implements PreparationHandler.
func (h *preparationHandlerImpl) GetCurrent(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.preparationService.GetCurrent(r.Context(), claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
