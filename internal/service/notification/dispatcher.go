package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vprep/preparator-backend-go/internal/broker/messages"
	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/notification"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
	"github.com/vprep/preparator-backend-go/internal/pkg/email"
)

const publishTimeout = 5 * time.Second

// EventPublisher receives one event per confirmed send.
type EventPublisher interface {
	PublishAlertDispatched(ctx context.Context, msg messages.AlertDispatched) error
}

type Renderer interface {
	Render(name string, data any) (string, error)
}

var subjects = map[alert.Type]string{
	alert.TypeLateStart:           "Retard de prise de poste : %s",
	alert.TypeLateEnd:             "Fin de poste tardive : %s",
	alert.TypeLongBreak:           "Pause prolongée : %s",
	alert.TypeMissingClockOut:     "Dépointage manquant : %s",
	alert.TypeOvertimePreparation: "Préparation en dépassement : %s",
}

var titles = map[alert.Type]string{
	alert.TypeLateStart:           "Retard de prise de poste",
	alert.TypeLateEnd:             "Fin de poste tardive",
	alert.TypeLongBreak:           "Pause prolongée",
	alert.TypeMissingClockOut:     "Dépointage manquant",
	alert.TypeOvertimePreparation: "Préparation en dépassement",
}

type templateData struct {
	Title string
	notification.Payload
}

type dispatcher struct {
	directory user.Directory
	renderer  Renderer
	transport email.Transport
	marker    notification.SendMarker
	publisher EventPublisher
	now       func() time.Time

	// set while the directory has no eligible recipient, so the condition is
	// logged once instead of once per candidate
	noRecipients atomic.Bool
}

// NewDispatcher wires the email pipeline. publisher may be nil.
func NewDispatcher(
	directory user.Directory,
	renderer Renderer,
	transport email.Transport,
	marker notification.SendMarker,
	publisher EventPublisher,
) notification.Dispatcher {
	return &dispatcher{
		directory: directory,
		renderer:  renderer,
		transport: transport,
		marker:    marker,
		publisher: publisher,
		now:       time.Now,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, a notification.Alert) (notification.Result, error) {
	subject, ok := subjects[a.Type]
	if !ok {
		return notification.Result{}, fmt.Errorf("%w: %s", notification.ErrUnknownTemplate, a.Type)
	}

	recipients, err := d.directory.ListActiveAdmins(ctx)
	if err != nil {
		return notification.Result{}, fmt.Errorf("failed to list alert recipients: %w", err)
	}
	if len(recipients) == 0 {
		if !d.noRecipients.Swap(true) {
			slog.WarnContext(ctx, "No active administrator with a verified email, alerts are disabled")
		}
		return notification.Result{}, notification.ErrNoRecipients
	}
	if d.noRecipients.Swap(false) {
		slog.InfoContext(ctx, "Alert recipients available again", "recipients", len(recipients))
	}

	key := a.IdempotencyKey()
	state, sentID, err := d.marker.Acquire(ctx, key)
	if err != nil {
		return notification.Result{}, fmt.Errorf("failed to acquire send marker: %w", err)
	}
	switch state {
	case notification.MarkerSent:
		slog.InfoContext(ctx, "Alert already sent, recovering dedup flag", "alert_type", a.Type, "record_id", a.RecordID)
		return notification.Result{MessageID: sentID, IdempotencyKey: key, Recipients: len(recipients), Recovered: true}, nil
	case notification.MarkerPending:
		return notification.Result{}, notification.ErrSendInProgress
	}

	body, err := d.renderer.Render(string(a.Type), templateData{Title: titles[a.Type], Payload: a.Payload})
	if err != nil {
		d.release(ctx, key)
		if errors.Is(err, email.ErrTemplateNotFound) {
			return notification.Result{}, fmt.Errorf("%w: %s", notification.ErrUnknownTemplate, a.Type)
		}
		return notification.Result{}, fmt.Errorf("failed to render alert: %w", err)
	}

	to := make([]string, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, r.Email)
	}

	messageID, err := d.transport.Send(ctx, email.Message{
		To:             to,
		Subject:        fmt.Sprintf(subject, a.Payload.EmployeeName),
		HTMLBody:       body,
		IdempotencyKey: key,
	})
	switch {
	case errors.Is(err, email.ErrDeliveryUnknown):
		// the server may hold the message: count it as sent
		slog.WarnContext(ctx, "Alert delivery unconfirmed, treating as sent",
			"alert_type", a.Type,
			"record_id", a.RecordID,
			"message_id", messageID,
			"error", err,
		)
	case err != nil:
		d.release(ctx, key)
		return notification.Result{}, &notification.TransportError{Err: err}
	}

	// From here the email is out. Marker and event failures must not turn
	// the send into an error or the alert would be sent again.
	ctx = context.WithoutCancel(ctx)
	if err := d.marker.Confirm(ctx, key, messageID); err != nil {
		slog.ErrorContext(ctx, "Failed to confirm send marker", "idempotency_key", key, "error", err)
	}

	res := notification.Result{MessageID: messageID, IdempotencyKey: key, Recipients: len(to)}
	d.publish(ctx, a, res)

	slog.InfoContext(ctx, "Alert dispatched",
		"alert_type", a.Type,
		"record_type", a.RecordType,
		"record_id", a.RecordID,
		"message_id", messageID,
		"recipients", len(to),
	)
	return res, nil
}

func (d *dispatcher) release(ctx context.Context, key string) {
	if err := d.marker.Release(context.WithoutCancel(ctx), key); err != nil {
		slog.ErrorContext(ctx, "Failed to release send marker", "idempotency_key", key, "error", err)
	}
}

func (d *dispatcher) publish(ctx context.Context, a notification.Alert, res notification.Result) {
	if d.publisher == nil {
		return
	}
	p := a.Payload
	msg := messages.AlertDispatched{
		IdempotencyKey:  res.IdempotencyKey,
		MessageID:       res.MessageID,
		AlertType:       string(a.Type),
		RecordType:      string(a.RecordType),
		RecordID:        a.RecordID,
		Recipients:      res.Recipients,
		DispatchedAt:    d.now().UTC(),
		EmployeeName:    p.EmployeeName,
		EmployeeEmail:   p.EmployeeEmail,
		AgencyName:      p.AgencyName,
		AgencyCode:      p.AgencyCode,
		Date:            p.Date,
		DelayMinutes:    p.DelayMinutes,
		DurationMinutes: p.DurationMinutes,
		ScheduledTime:   p.ScheduledTime,
		ActualTime:      p.ActualTime,
		VehicleID:       p.VehicleID,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := d.publisher.PublishAlertDispatched(pubCtx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish alert event", "idempotency_key", res.IdempotencyKey, "error", err)
	}
}
