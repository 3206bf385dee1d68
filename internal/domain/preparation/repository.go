package preparation

import (
	"context"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
)

type PreparationRepository interface {
	// Create inserts p. Returns ErrPreparationInProgress when the worker
	// already has one in progress.
	Create(ctx context.Context, p Preparation) (Preparation, error)

	GetByID(ctx context.Context, id string) (Preparation, error)

	// GetInProgressByWorker returns the worker's open preparation or nil.
	GetInProgressByWorker(ctx context.Context, workerID string) (*Preparation, error)

	// Mutate applies fn under a row lock and persists status, steps and
	// totals. Alert flags are left untouched.
	Mutate(ctx context.Context, id string, fn func(*Preparation) error) (Preparation, error)

	// ListOverdue returns in-progress preparations started before
	// startedBefore whose overtime alert is unsent.
	ListOverdue(ctx context.Context, startedBefore time.Time) ([]Preparation, error)

	MarkAlertSent(ctx context.Context, id string, delivery alert.Delivery) error
}
