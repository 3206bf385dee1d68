package preparation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
)

type PreparationServiceImpl struct {
	preparations preparation.PreparationRepository
	agencies     agency.AgencyRepository
	defaults     agency.Thresholds
	now          func() time.Time
}

func NewPreparationService(
	preparations preparation.PreparationRepository,
	agencies agency.AgencyRepository,
	defaults agency.Thresholds,
	now func() time.Time,
) preparation.PreparationService {
	if now == nil {
		now = time.Now
	}
	return &PreparationServiceImpl{
		preparations: preparations,
		agencies:     agencies,
		defaults:     defaults,
		now:          now,
	}
}

// Start implements preparation.PreparationService.
func (s *PreparationServiceImpl) Start(ctx context.Context, req preparation.StartRequest) (preparation.PreparationResponse, error) {
	if err := req.Validate(); err != nil {
		return preparation.PreparationResponse{}, err
	}
	now := s.now()

	p, err := s.preparations.Create(ctx, preparation.New(req.WorkerID, req.AgencyID, req.VehicleID, now))
	if err != nil {
		return preparation.PreparationResponse{}, fmt.Errorf("failed to start preparation: %w", err)
	}

	slog.InfoContext(ctx, "Preparation started", "preparation_id", p.ID, "worker_id", p.WorkerID, "vehicle_id", p.VehicleID)
	return preparation.ToResponse(p, now), nil
}

func (s *PreparationServiceImpl) CompleteStep(ctx context.Context, req preparation.CompleteStepRequest) (preparation.PreparationResponse, error) {
	if err := req.Validate(); err != nil {
		return preparation.PreparationResponse{}, err
	}
	now := s.now()

	p, err := s.preparations.Mutate(ctx, req.PreparationID, func(p *preparation.Preparation) error {
		if err := checkOwner(p, req.WorkerID); err != nil {
			return err
		}
		return p.CompleteStep(req.Type, req.PhotoRef, req.Notes, now)
	})
	if err != nil {
		return preparation.PreparationResponse{}, fmt.Errorf("failed to complete step: %w", err)
	}
	return preparation.ToResponse(p, now), nil
}

// Complete closes the preparation and classifies it against the agency's
// preparation threshold.
func (s *PreparationServiceImpl) Complete(ctx context.Context, req preparation.CloseRequest) (preparation.PreparationResponse, error) {
	now := s.now()

	current, err := s.preparations.GetByID(ctx, req.PreparationID)
	if err != nil {
		return preparation.PreparationResponse{}, fmt.Errorf("failed to get preparation: %w", err)
	}
	thresholds, err := s.thresholds(ctx, current.AgencyID)
	if err != nil {
		return preparation.PreparationResponse{}, err
	}

	p, err := s.preparations.Mutate(ctx, req.PreparationID, func(p *preparation.Preparation) error {
		if err := checkOwner(p, req.WorkerID); err != nil {
			return err
		}
		return p.Complete(req.Notes, now, thresholds.PreparationMinutes)
	})
	if err != nil {
		return preparation.PreparationResponse{}, fmt.Errorf("failed to complete preparation: %w", err)
	}

	slog.InfoContext(ctx, "Preparation completed",
		"preparation_id", p.ID,
		"worker_id", p.WorkerID,
		"total_minutes", *p.TotalTimeMinutes,
		"on_time", *p.IsOnTime,
	)
	return preparation.ToResponse(p, now), nil
}

func (s *PreparationServiceImpl) Cancel(ctx context.Context, req preparation.CloseRequest) (preparation.PreparationResponse, error) {
	now := s.now()

	p, err := s.preparations.Mutate(ctx, req.PreparationID, func(p *preparation.Preparation) error {
		if err := checkOwner(p, req.WorkerID); err != nil {
			return err
		}
		return p.Cancel(req.Notes, now)
	})
	if err != nil {
		return preparation.PreparationResponse{}, fmt.Errorf("failed to cancel preparation: %w", err)
	}

	slog.InfoContext(ctx, "Preparation cancelled", "preparation_id", p.ID, "worker_id", p.WorkerID)
	return preparation.ToResponse(p, now), nil
}

func (s *PreparationServiceImpl) Get(ctx context.Context, id string) (preparation.PreparationResponse, error) {
	p, err := s.preparations.GetByID(ctx, id)
	if err != nil {
		return preparation.PreparationResponse{}, fmt.Errorf("failed to get preparation: %w", err)
	}
	return preparation.ToResponse(p, s.now()), nil
}

func (s *PreparationServiceImpl) GetCurrent(ctx context.Context, workerID string) (preparation.PreparationResponse, error) {
	p, err := s.preparations.GetInProgressByWorker(ctx, workerID)
	if err != nil {
		return preparation.PreparationResponse{}, fmt.Errorf("failed to get current preparation: %w", err)
	}
	if p == nil {
		return preparation.PreparationResponse{}, preparation.ErrPreparationNotFound
	}
	return preparation.ToResponse(*p, s.now()), nil
}

func (s *PreparationServiceImpl) thresholds(ctx context.Context, agencyID string) (agency.Thresholds, error) {
	settings, err := s.agencies.GetSettings(ctx, agencyID)
	if err != nil {
		return agency.Thresholds{}, fmt.Errorf("failed to get agency settings: %w", err)
	}
	if settings == nil {
		return s.defaults, nil
	}
	return settings.Apply(s.defaults), nil
}

// checkOwner hides other workers' preparations. An empty workerID skips the
// check for administrative callers.
func checkOwner(p *preparation.Preparation, workerID string) error {
	if workerID != "" && p.WorkerID != workerID {
		return preparation.ErrPreparationNotFound
	}
	return nil
}
