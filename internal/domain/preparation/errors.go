package preparation

import "errors"

var (
	ErrPreparationNotFound      = errors.New("preparation not found")
	ErrPreparationInProgress    = errors.New("worker already has a preparation in progress")
	ErrPreparationNotInProgress = errors.New("preparation is not in progress")
	ErrStepAlreadyCompleted     = errors.New("step already completed")
	ErrInvalidStepType          = errors.New("invalid step type")
)
