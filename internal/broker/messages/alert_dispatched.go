package messages

import "time"

// AlertDispatched is published once per confirmed alert email.
type AlertDispatched struct {
	IdempotencyKey string    `json:"idempotency_key"`
	MessageID      string    `json:"message_id"`
	AlertType      string    `json:"alert_type"`
	RecordType     string    `json:"record_type"`
	RecordID       string    `json:"record_id"`
	Recipients     int       `json:"recipients"`
	DispatchedAt   time.Time `json:"dispatched_at"`

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
