package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/pkg/database"
)

// markAlertSent raises column on the row of table only while it is unset and
// appends the delivery in the same transaction. table and column come from
// compile-time whitelists.
func markAlertSent(ctx context.Context, tx pgx.Tx, table, column string, d alert.Delivery, notFound error) error {
	tag, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = TRUE, updated_at = NOW() WHERE id = $1 AND %s = FALSE`, table, column, column),
		d.RecordID,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), d.RecordID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check %s row: %w", table, err)
		}
		if !exists {
			return notFound
		}
		return alert.ErrAlreadySent
	}

	query := `
		INSERT INTO alert_deliveries (record_type, record_id, alert_type, message_id, idempotency_key, recipients, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if d.SentAt.IsZero() {
		d.SentAt = time.Now()
	}
	if _, err := tx.Exec(ctx, query,
		d.RecordType, d.RecordID, d.AlertType, d.MessageID, d.IdempotencyKey, d.Recipients, d.SentAt,
	); err != nil {
		return fmt.Errorf("failed to record alert delivery: %w", err)
	}
	return nil
}

type deliveryRepository struct {
	db *database.DB
}

func NewDeliveryRepository(db *database.DB) alert.DeliveryRepository {
	return &deliveryRepository{db: db}
}

// ListByRecord implements alert.DeliveryRepository.
func (r *deliveryRepository) ListByRecord(ctx context.Context, recordType alert.RecordType, recordID string) ([]alert.Delivery, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, record_type, record_id, alert_type, message_id, idempotency_key, recipients, sent_at
		FROM alert_deliveries
		WHERE record_type = $1 AND record_id = $2
		ORDER BY sent_at, id`, recordType, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert deliveries: %w", err)
	}
	defer rows.Close()

	var out []alert.Delivery
	for rows.Next() {
		var d alert.Delivery
		if err := rows.Scan(&d.ID, &d.RecordType, &d.RecordID, &d.AlertType, &d.MessageID, &d.IdempotencyKey, &d.Recipients, &d.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
