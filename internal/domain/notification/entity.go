package notification

import (
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
)

// Payload is the externally consumed alert body. Keep field names stable.
type Payload struct {
	EmployeeName    string `json:"employee_name"`
	EmployeeEmail   string `json:"employee_email"`
	AgencyName      string `json:"agency_name"`
	AgencyCode      string `json:"agency_code"`
	Date            string `json:"date"`
	DelayMinutes    *int   `json:"delay_minutes,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	ScheduledTime   string `json:"scheduled_time,omitempty"`
	ActualTime      string `json:"actual_time,omitempty"`
	VehicleID       string `json:"vehicle_id,omitempty"`
}

// Alert is one dispatch request for a (record, alert type) pair.
type Alert struct {
	Type       alert.Type
	RecordType alert.RecordType
	RecordID   string
	Payload    Payload
}

func (a Alert) IdempotencyKey() string {
	return alert.IdempotencyKey(a.RecordType, a.RecordID, a.Type)
}

// Result is a confirmed send.
type Result struct {
	MessageID      string
	IdempotencyKey string
	Recipients     int
	// Recovered is set when the send had already succeeded in an earlier run
	// and only the dedup flag is missing.
	Recovered bool
}

// Delivery converts r into the audit record persisted with the flag.
func (r Result) Delivery(a Alert, sentAt time.Time) alert.Delivery {
	return alert.Delivery{
		RecordType:     a.RecordType,
		RecordID:       a.RecordID,
		AlertType:      a.Type,
		MessageID:      r.MessageID,
		IdempotencyKey: r.IdempotencyKey,
		Recipients:     r.Recipients,
		SentAt:         sentAt,
	}
}

// MarkerState is the outcome of claiming the send marker of an alert.
type MarkerState int

const (
	MarkerAcquired MarkerState = iota
	MarkerPending
	MarkerSent
)
