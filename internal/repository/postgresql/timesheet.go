package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/pkg/database"
)

const timesheetColumns = `
	id, worker_id, agency_id, date, schedule_id,
	start_time, end_time, break_start, break_end,
	start_delay, end_delay, break_start_delay, break_end_delay,
	late_start_alert_sent, late_end_alert_sent, long_break_alert_sent, missing_clock_out_alert_sent,
	total_worked_minutes, total_break_minutes, status, created_at, updated_at`

// timesheetAlertColumns whitelists the flag column of each timesheet alert.
var timesheetAlertColumns = map[alert.Type]string{
	alert.TypeLateStart:       "late_start_alert_sent",
	alert.TypeLateEnd:         "late_end_alert_sent",
	alert.TypeLongBreak:       "long_break_alert_sent",
	alert.TypeMissingClockOut: "missing_clock_out_alert_sent",
}

type timesheetRepository struct {
	db        *database.DB
	schedules *scheduleRepository
}

func NewTimesheetRepository(db *database.DB) timesheet.TimesheetRepository {
	return &timesheetRepository{db: db, schedules: &scheduleRepository{db: db}}
}

func scanTimesheet(row pgx.Row) (timesheet.Timesheet, error) {
	var t timesheet.Timesheet
	err := row.Scan(
		&t.ID, &t.WorkerID, &t.AgencyID, &t.Date, &t.ScheduleID,
		&t.StartTime, &t.EndTime, &t.BreakStart, &t.BreakEnd,
		&t.Delays.Start, &t.Delays.End, &t.Delays.BreakStart, &t.Delays.BreakEnd,
		&t.AlertsSent.LateStart, &t.AlertsSent.LateEnd, &t.AlertsSent.LongBreak, &t.AlertsSent.MissingClockOut,
		&t.TotalWorkedMinutes, &t.TotalBreakMinutes, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func collectTimesheets(rows pgx.Rows) ([]timesheet.Timesheet, error) {
	defer rows.Close()

	var out []timesheet.Timesheet
	for rows.Next() {
		t, err := scanTimesheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByKey implements timesheet.TimesheetRepository.
func (r *timesheetRepository) GetByKey(ctx context.Context, key timesheet.Key) (*timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + `
		FROM timesheets
		WHERE worker_id = $1 AND agency_id = $2 AND date = $3`

	t, err := scanTimesheet(q.QueryRow(ctx, query, key.WorkerID, key.AgencyID, key.Date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get timesheet: %w", err)
	}
	return &t, nil
}

// Mutate implements timesheet.TimesheetRepository. The row is created if
// missing and locked for the rest of the transaction, so concurrent clock
// actions on the same key serialize.
func (r *timesheetRepository) Mutate(ctx context.Context, key timesheet.Key, fn func(*timesheet.Timesheet) error) (timesheet.Timesheet, error) {
	var result timesheet.Timesheet

	err := WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO timesheets (worker_id, agency_id, date)
			VALUES ($1, $2, $3)
			ON CONFLICT ON CONSTRAINT timesheets_worker_agency_date_key DO NOTHING`,
			key.WorkerID, key.AgencyID, key.Date,
		)
		if err != nil {
			return fmt.Errorf("failed to ensure timesheet: %w", err)
		}

		current, err := scanTimesheet(tx.QueryRow(ctx, `SELECT `+timesheetColumns+`
			FROM timesheets
			WHERE worker_id = $1 AND agency_id = $2 AND date = $3
			FOR UPDATE`, key.WorkerID, key.AgencyID, key.Date))
		if err != nil {
			return fmt.Errorf("failed to lock timesheet: %w", err)
		}

		work := current
		if err := fn(&work); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE timesheets SET
				schedule_id = $2,
				start_time = $3, end_time = $4, break_start = $5, break_end = $6,
				start_delay = $7, end_delay = $8, break_start_delay = $9, break_end_delay = $10,
				total_worked_minutes = $11, total_break_minutes = $12, status = $13,
				updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			current.ID,
			work.ScheduleID,
			work.StartTime, work.EndTime, work.BreakStart, work.BreakEnd,
			work.Delays.Start, work.Delays.End, work.Delays.BreakStart, work.Delays.BreakEnd,
			work.TotalWorkedMinutes, work.TotalBreakMinutes, work.Status,
		).Scan(&work.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update timesheet: %w", err)
		}

		work.ID = current.ID
		work.AlertsSent = current.AlertsSent
		result = work
		return nil
	})
	if err != nil {
		return timesheet.Timesheet{}, err
	}
	return result, nil
}

// RecordLateStart implements timesheet.TimesheetRepository.
func (r *timesheetRepository) RecordLateStart(ctx context.Context, key timesheet.Key, scheduleID string, delayMinutes int) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO timesheets (worker_id, agency_id, date, schedule_id, start_delay)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT timesheets_worker_agency_date_key DO UPDATE SET
			schedule_id = EXCLUDED.schedule_id,
			start_delay = EXCLUDED.start_delay,
			updated_at = NOW()
		WHERE timesheets.start_time IS NULL
		RETURNING ` + timesheetColumns

	t, err := scanTimesheet(q.QueryRow(ctx, query, key.WorkerID, key.AgencyID, key.Date, scheduleID, delayMinutes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, timesheet.ErrAlreadyClockedIn
		}
		return timesheet.Timesheet{}, fmt.Errorf("failed to record late start: %w", err)
	}
	return t, nil
}

// ListLateStartCandidates implements timesheet.TimesheetRepository.
func (r *timesheetRepository) ListLateStartCandidates(ctx context.Context, date time.Time) ([]timesheet.LateStartCandidate, error) {
	schedules, err := r.schedules.listActiveByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `SELECT `+timesheetColumns+` FROM timesheets WHERE date = $1`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}
	sheets, err := collectTimesheets(rows)
	if err != nil {
		return nil, err
	}

	byWorker := make(map[[2]string]timesheet.Timesheet, len(sheets))
	for _, t := range sheets {
		byWorker[[2]string{t.WorkerID, t.AgencyID}] = t
	}

	var out []timesheet.LateStartCandidate
	for _, s := range schedules {
		c := timesheet.LateStartCandidate{Schedule: s}
		if t, ok := byWorker[[2]string{s.WorkerID, s.AgencyID}]; ok {
			if t.AlertsSent.LateStart {
				continue
			}
			c.Timesheet = &t
		}
		out = append(out, c)
	}
	return out, nil
}

// ListStartedByDate implements timesheet.TimesheetRepository.
func (r *timesheetRepository) ListStartedByDate(ctx context.Context, date time.Time) ([]timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+timesheetColumns+`
		FROM timesheets
		WHERE date = $1 AND start_time IS NOT NULL
		ORDER BY start_time, id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list started timesheets: %w", err)
	}
	return collectTimesheets(rows)
}

// ListOpenByDate implements timesheet.TimesheetRepository.
func (r *timesheetRepository) ListOpenByDate(ctx context.Context, date time.Time) ([]timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+timesheetColumns+`
		FROM timesheets
		WHERE date = $1
		  AND start_time IS NOT NULL
		  AND end_time IS NULL
		  AND missing_clock_out_alert_sent = FALSE
		ORDER BY start_time, id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list open timesheets: %w", err)
	}
	return collectTimesheets(rows)
}

// MarkAlertSent implements timesheet.TimesheetRepository.
func (r *timesheetRepository) MarkAlertSent(ctx context.Context, id string, delivery alert.Delivery) error {
	column, ok := timesheetAlertColumns[delivery.AlertType]
	if !ok {
		return alert.ErrUnknownType
	}
	delivery.RecordType = alert.RecordTimesheet
	delivery.RecordID = id

	return WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return markAlertSent(ctx, tx, "timesheets", column, delivery, timesheet.ErrTimesheetNotFound)
	})
}
