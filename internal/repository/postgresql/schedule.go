package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/pkg/database"
)

const scheduleColumns = `
	id, worker_id, agency_id, date,
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	to_char(break_start, 'HH24:MI'), to_char(break_end, 'HH24:MI'),
	status, created_at, updated_at`

type scheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) schedule.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func scanSchedule(row pgx.Row) (schedule.Schedule, error) {
	var s schedule.Schedule
	err := row.Scan(
		&s.ID, &s.WorkerID, &s.AgencyID, &s.Date,
		&s.StartTime, &s.EndTime,
		&s.BreakStart, &s.BreakEnd,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// GetActiveSchedule implements schedule.ScheduleRepository.
func (r *scheduleRepository) GetActiveSchedule(ctx context.Context, workerID, agencyID string, date time.Time) (*schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE worker_id = $1 AND agency_id = $2 AND date = $3 AND status = 'active'`

	s, err := scanSchedule(q.QueryRow(ctx, query, workerID, agencyID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active schedule: %w", err)
	}
	return &s, nil
}

// GetByID implements schedule.ScheduleRepository.
func (r *scheduleRepository) GetByID(ctx context.Context, id string) (schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	s, err := scanSchedule(q.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Schedule{}, schedule.ErrScheduleNotFound
		}
		return schedule.Schedule{}, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

// Create implements schedule.ScheduleRepository.
func (r *scheduleRepository) Create(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	if s.Status == "" {
		s.Status = schedule.StatusActive
	}

	query := `
		INSERT INTO schedules (worker_id, agency_id, date, start_time, end_time, break_start, break_end, status)
		VALUES ($1, $2, $3, $4::time, $5::time, $6::time, $7::time, $8)
		RETURNING ` + scheduleColumns

	created, err := scanSchedule(q.QueryRow(ctx, query,
		s.WorkerID, s.AgencyID, s.Date, s.StartTime, s.EndTime, s.BreakStart, s.BreakEnd, s.Status,
	))
	if err != nil {
		if isUniqueViolation(err, "schedules_one_active_idx") {
			return schedule.Schedule{}, schedule.ErrDuplicateActive
		}
		return schedule.Schedule{}, fmt.Errorf("failed to create schedule: %w", err)
	}
	return created, nil
}

// listActiveByDate returns the active schedules of date ordered by start.
func (r *scheduleRepository) listActiveByDate(ctx context.Context, date time.Time) ([]schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+scheduleColumns+`
		FROM schedules
		WHERE date = $1 AND status = 'active'
		ORDER BY start_time, id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var out []schedule.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
