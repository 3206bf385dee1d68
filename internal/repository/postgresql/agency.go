package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/pkg/database"
)

type agencyRepository struct {
	db *database.DB
}

func NewAgencyRepository(db *database.DB) agency.AgencyRepository {
	return &agencyRepository{db: db}
}

// GetByID implements agency.AgencyRepository.
func (r *agencyRepository) GetByID(ctx context.Context, id string) (agency.Agency, error) {
	q := GetQuerier(ctx, r.db)

	var a agency.Agency
	err := q.QueryRow(ctx, `
		SELECT id, name, code, created_at, updated_at
		FROM agencies
		WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Code, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return agency.Agency{}, agency.ErrAgencyNotFound
		}
		return agency.Agency{}, fmt.Errorf("failed to get agency: %w", err)
	}
	return a, nil
}

// GetSettings implements agency.AgencyRepository.
func (r *agencyRepository) GetSettings(ctx context.Context, agencyID string) (*agency.Settings, error) {
	q := GetQuerier(ctx, r.db)

	var s agency.Settings
	err := q.QueryRow(ctx, `
		SELECT agency_id, late_threshold_minutes, overtime_threshold_minutes, preparation_threshold_minutes
		FROM agency_settings
		WHERE agency_id = $1`, agencyID,
	).Scan(&s.AgencyID, &s.LateThresholdMinutes, &s.OvertimeThresholdMinutes, &s.PreparationThresholdMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agency settings: %w", err)
	}
	return &s, nil
}

// ListSettings implements agency.AgencyRepository.
func (r *agencyRepository) ListSettings(ctx context.Context) ([]agency.Settings, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT agency_id, late_threshold_minutes, overtime_threshold_minutes, preparation_threshold_minutes
		FROM agency_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agency settings: %w", err)
	}
	defer rows.Close()

	var out []agency.Settings
	for rows.Next() {
		var s agency.Settings
		if err := rows.Scan(&s.AgencyID, &s.LateThresholdMinutes, &s.OvertimeThresholdMinutes, &s.PreparationThresholdMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan agency settings: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
