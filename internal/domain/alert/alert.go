// Package alert names the monitor alert types and the delivery audit record
// persisted next to each dedup flag.
package alert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

type Type string

const (
	TypeLateStart           Type = "late_start"
	TypeLateEnd             Type = "late_end"
	TypeLongBreak           Type = "long_break"
	TypeMissingClockOut     Type = "missing_clock_out"
	TypeOvertimePreparation Type = "overtime_preparation"
)

type RecordType string

const (
	RecordTimesheet   RecordType = "timesheet"
	RecordPreparation RecordType = "preparation"
)

// ErrAlreadySent is returned when a dedup flag was already set by another run.
var ErrAlreadySent = errors.New("alert already marked as sent")

// ErrUnknownType is returned when an alert type has no flag on the record.
var ErrUnknownType = errors.New("unknown alert type for record")

// Delivery records a confirmed send for auditability.
type Delivery struct {
	ID             string
	RecordType     RecordType
	RecordID       string
	AlertType      Type
	MessageID      string
	IdempotencyKey string
	Recipients     int
	SentAt         time.Time
}

// IdempotencyKey derives a stable key for one (record, alert type) pair.
func IdempotencyKey(recordType RecordType, recordID string, alertType Type) string {
	sum := sha256.Sum256([]byte(string(recordType) + ":" + recordID + ":" + string(alertType)))
	return hex.EncodeToString(sum[:])
}

// DeliveryRepository reads the delivery audit log.
type DeliveryRepository interface {
	// ListByRecord returns the deliveries of one record, oldest first.
	ListByRecord(ctx context.Context, recordType RecordType, recordID string) ([]Delivery, error)
}
