package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/pkg/database"
)

const preparationColumns = `
	id, worker_id, agency_id, vehicle_id, status, start_time, end_time, steps,
	total_time_minutes, is_on_time, notes, overtime_alert_sent, created_at, updated_at`

// stepRecord is the JSONB shape of one checklist step.
type stepRecord struct {
	Type        preparation.StepType `json:"type"`
	Completed   bool                 `json:"completed"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	PhotoRef    *string              `json:"photo_ref,omitempty"`
	Notes       *string              `json:"notes,omitempty"`
}

func encodeSteps(steps []preparation.Step) ([]byte, error) {
	records := make([]stepRecord, len(steps))
	for i, s := range steps {
		records[i] = stepRecord(s)
	}
	return json.Marshal(records)
}

func decodeSteps(raw []byte) ([]preparation.Step, error) {
	var records []stepRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	steps := make([]preparation.Step, len(records))
	for i, r := range records {
		steps[i] = preparation.Step(r)
	}
	return steps, nil
}

type preparationRepository struct {
	db *database.DB
}

func NewPreparationRepository(db *database.DB) preparation.PreparationRepository {
	return &preparationRepository{db: db}
}

func scanPreparation(row pgx.Row) (preparation.Preparation, error) {
	var (
		p     preparation.Preparation
		steps []byte
	)
	err := row.Scan(
		&p.ID, &p.WorkerID, &p.AgencyID, &p.VehicleID, &p.Status, &p.StartTime, &p.EndTime, &steps,
		&p.TotalTimeMinutes, &p.IsOnTime, &p.Notes, &p.AlertsSent.Overtime, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return preparation.Preparation{}, err
	}
	if p.Steps, err = decodeSteps(steps); err != nil {
		return preparation.Preparation{}, fmt.Errorf("decode steps of preparation %s: %w", p.ID, err)
	}
	return p, nil
}

// Create implements preparation.PreparationRepository.
func (r *preparationRepository) Create(ctx context.Context, p preparation.Preparation) (preparation.Preparation, error) {
	q := GetQuerier(ctx, r.db)

	steps, err := encodeSteps(p.Steps)
	if err != nil {
		return preparation.Preparation{}, fmt.Errorf("encode steps: %w", err)
	}

	query := `
		INSERT INTO preparations (worker_id, agency_id, vehicle_id, status, start_time, steps, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + preparationColumns

	created, err := scanPreparation(q.QueryRow(ctx, query,
		p.WorkerID, p.AgencyID, p.VehicleID, p.Status, p.StartTime, steps, p.Notes,
	))
	if err != nil {
		if isUniqueViolation(err, "preparations_one_in_progress_idx") {
			return preparation.Preparation{}, preparation.ErrPreparationInProgress
		}
		return preparation.Preparation{}, fmt.Errorf("failed to create preparation: %w", err)
	}
	return created, nil
}

// GetByID implements preparation.PreparationRepository.
func (r *preparationRepository) GetByID(ctx context.Context, id string) (preparation.Preparation, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPreparation(q.QueryRow(ctx, `SELECT `+preparationColumns+` FROM preparations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return preparation.Preparation{}, preparation.ErrPreparationNotFound
		}
		return preparation.Preparation{}, fmt.Errorf("failed to get preparation: %w", err)
	}
	return p, nil
}

// GetInProgressByWorker implements preparation.PreparationRepository.
func (r *preparationRepository) GetInProgressByWorker(ctx context.Context, workerID string) (*preparation.Preparation, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPreparation(q.QueryRow(ctx, `SELECT `+preparationColumns+`
		FROM preparations
		WHERE worker_id = $1 AND status = 'in_progress'`, workerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current preparation: %w", err)
	}
	return &p, nil
}

// Mutate implements preparation.PreparationRepository.
func (r *preparationRepository) Mutate(ctx context.Context, id string, fn func(*preparation.Preparation) error) (preparation.Preparation, error) {
	var result preparation.Preparation

	err := WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		current, err := scanPreparation(tx.QueryRow(ctx, `SELECT `+preparationColumns+`
			FROM preparations WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return preparation.ErrPreparationNotFound
			}
			return fmt.Errorf("failed to lock preparation: %w", err)
		}

		work := current
		work.Steps = append([]preparation.Step(nil), current.Steps...)
		if err := fn(&work); err != nil {
			return err
		}

		steps, err := encodeSteps(work.Steps)
		if err != nil {
			return fmt.Errorf("encode steps: %w", err)
		}

		err = tx.QueryRow(ctx, `
			UPDATE preparations SET
				status = $2, end_time = $3, steps = $4,
				total_time_minutes = $5, is_on_time = $6, notes = $7,
				updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			id, work.Status, work.EndTime, steps, work.TotalTimeMinutes, work.IsOnTime, work.Notes,
		).Scan(&work.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update preparation: %w", err)
		}

		work.AlertsSent = current.AlertsSent
		result = work
		return nil
	})
	if err != nil {
		return preparation.Preparation{}, err
	}
	return result, nil
}

// ListOverdue implements preparation.PreparationRepository.
func (r *preparationRepository) ListOverdue(ctx context.Context, startedBefore time.Time) ([]preparation.Preparation, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+preparationColumns+`
		FROM preparations
		WHERE status = 'in_progress'
		  AND overtime_alert_sent = FALSE
		  AND start_time <= $1
		ORDER BY start_time, id`, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue preparations: %w", err)
	}
	defer rows.Close()

	var out []preparation.Preparation
	for rows.Next() {
		p, err := scanPreparation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preparation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkAlertSent implements preparation.PreparationRepository.
func (r *preparationRepository) MarkAlertSent(ctx context.Context, id string, delivery alert.Delivery) error {
	if delivery.AlertType != alert.TypeOvertimePreparation {
		return alert.ErrUnknownType
	}
	delivery.RecordType = alert.RecordPreparation
	delivery.RecordID = id

	return WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return markAlertSent(ctx, tx, "preparations", "overtime_alert_sent", delivery, preparation.ErrPreparationNotFound)
	})
}
