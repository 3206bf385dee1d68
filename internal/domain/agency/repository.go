package agency

import "context"

type AgencyRepository interface {
	GetByID(ctx context.Context, id string) (Agency, error)

	// GetSettings returns the agency overrides, or nil when none exist.
	GetSettings(ctx context.Context, agencyID string) (*Settings, error)

	ListSettings(ctx context.Context) ([]Settings, error)
}
