package preparation

import "context"

type PreparationService interface {
	Start(ctx context.Context, req StartRequest) (PreparationResponse, error)
	CompleteStep(ctx context.Context, req CompleteStepRequest) (PreparationResponse, error)
	Complete(ctx context.Context, req CloseRequest) (PreparationResponse, error)
	Cancel(ctx context.Context, req CloseRequest) (PreparationResponse, error)
	Get(ctx context.Context, id string) (PreparationResponse, error)

	// GetCurrent returns the worker's in-progress preparation.
	GetCurrent(ctx context.Context, workerID string) (PreparationResponse, error)
}
