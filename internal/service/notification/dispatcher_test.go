package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vprep/preparator-backend-go/internal/broker/messages"
	"github.com/vprep/preparator-backend-go/internal/cache/memcache"
	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/notification"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
	"github.com/vprep/preparator-backend-go/internal/pkg/email"
)

type fakeDirectory struct {
	admins []user.Recipient
	err    error
}

func (f *fakeDirectory) ListActiveAdmins(context.Context) ([]user.Recipient, error) {
	return f.admins, f.err
}

func (f *fakeDirectory) GetByID(context.Context, string) (user.User, error) {
	return user.User{}, user.ErrUserNotFound
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   []email.Message
	err    error
	onSend func()
}

func (f *fakeTransport) Send(_ context.Context, msg email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "<" + msg.IdempotencyKey + "@test>"
	if f.onSend != nil {
		f.onSend()
	}
	if f.err != nil {
		if errors.Is(f.err, email.ErrDeliveryUnknown) {
			f.sent = append(f.sent, msg)
			return id, f.err
		}
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return id, nil
}

type fakePublisher struct {
	events []messages.AlertDispatched
}

func (f *fakePublisher) PublishAlertDispatched(_ context.Context, msg messages.AlertDispatched) error {
	f.events = append(f.events, msg)
	return nil
}

func newTestDispatcher(t *testing.T, dir *fakeDirectory, tr *fakeTransport, pub EventPublisher) *dispatcher {
	t.Helper()
	r, err := email.NewRenderer()
	require.NoError(t, err)
	d := NewDispatcher(dir, r, tr, memcache.NewSendMarker(time.Minute), pub).(*dispatcher)
	d.now = func() time.Time { return time.Date(2025, 1, 15, 8, 20, 0, 0, time.UTC) }
	return d
}

func lateStartAlert() notification.Alert {
	delay := 20
	return notification.Alert{
		Type:       alert.TypeLateStart,
		RecordType: alert.RecordTimesheet,
		RecordID:   "ts-1",
		Payload: notification.Payload{
			EmployeeName:  "Camille Martin",
			EmployeeEmail: "camille@vprep.fr",
			AgencyName:    "Lyon Part-Dieu",
			AgencyCode:    "LYS",
			Date:          "2025-01-15",
			DelayMinutes:  &delay,
			ScheduledTime: "08:00",
		},
	}
}

var admins = []user.Recipient{
	{UserID: "u1", Name: "Admin One", Email: "one@vprep.fr"},
	{UserID: "u2", Name: "Admin Two", Email: "two@vprep.fr"},
}

func TestDispatch_SendsToAllAdmins(t *testing.T) {
	tr := &fakeTransport{}
	pub := &fakePublisher{}
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, tr, pub)

	a := lateStartAlert()
	res, err := d.Dispatch(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, a.IdempotencyKey(), res.IdempotencyKey)
	assert.Equal(t, "<"+res.IdempotencyKey+"@test>", res.MessageID)
	assert.Equal(t, 2, res.Recipients)
	assert.False(t, res.Recovered)

	require.Len(t, tr.sent, 1)
	msg := tr.sent[0]
	assert.Equal(t, []string{"one@vprep.fr", "two@vprep.fr"}, msg.To)
	assert.Equal(t, "Retard de prise de poste : Camille Martin", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "Lyon Part-Dieu")
	assert.Contains(t, msg.HTMLBody, "20 min")

	require.Len(t, pub.events, 1)
	assert.Equal(t, "late_start", pub.events[0].AlertType)
	assert.Equal(t, res.MessageID, pub.events[0].MessageID)
}

func TestDispatch_SecondCallRecoversWithoutSending(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, tr, nil)

	first, err := d.Dispatch(context.Background(), lateStartAlert())
	require.NoError(t, err)

	second, err := d.Dispatch(context.Background(), lateStartAlert())
	require.NoError(t, err)
	assert.True(t, second.Recovered)
	assert.Equal(t, first.MessageID, second.MessageID)
	assert.Len(t, tr.sent, 1)
}

func TestDispatch_NoRecipients(t *testing.T) {
	tr := &fakeTransport{}
	dir := &fakeDirectory{}
	d := newTestDispatcher(t, dir, tr, nil)

	_, err := d.Dispatch(context.Background(), lateStartAlert())
	require.ErrorIs(t, err, notification.ErrNoRecipients)
	assert.ErrorIs(t, err, notification.ErrConfigurationMissing)
	assert.True(t, d.noRecipients.Load())
	assert.Empty(t, tr.sent)

	dir.admins = admins
	_, err = d.Dispatch(context.Background(), lateStartAlert())
	require.NoError(t, err)
	assert.False(t, d.noRecipients.Load())
}

func TestDispatch_TransportFailureReleasesMarker(t *testing.T) {
	tr := &fakeTransport{err: errors.New("connection refused")}
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, tr, nil)

	_, err := d.Dispatch(context.Background(), lateStartAlert())
	var te *notification.TransportError
	require.ErrorAs(t, err, &te)

	tr.err = nil
	res, err := d.Dispatch(context.Background(), lateStartAlert())
	require.NoError(t, err)
	assert.False(t, res.Recovered)
	assert.Len(t, tr.sent, 1)
}

func TestDispatch_UnknownOutcomeCountsAsSent(t *testing.T) {
	tr := &fakeTransport{err: fmt.Errorf("%w: connection reset", email.ErrDeliveryUnknown)}
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, tr, nil)

	first, err := d.Dispatch(context.Background(), lateStartAlert())
	require.NoError(t, err)
	assert.False(t, first.Recovered)
	assert.NotEmpty(t, first.MessageID)

	tr.err = nil
	second, err := d.Dispatch(context.Background(), lateStartAlert())
	require.NoError(t, err)
	assert.True(t, second.Recovered)
	assert.Equal(t, first.MessageID, second.MessageID)
	assert.Len(t, tr.sent, 1)
}

func TestDispatch_CallerDeadlineDuringSendStillConfirms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := &fakeTransport{onSend: cancel}
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, tr, nil)

	first, err := d.Dispatch(ctx, lateStartAlert())
	require.NoError(t, err)

	second, err := d.Dispatch(context.Background(), lateStartAlert())
	require.NoError(t, err)
	assert.True(t, second.Recovered)
	assert.Equal(t, first.MessageID, second.MessageID)
	assert.Len(t, tr.sent, 1)
}

func TestDispatch_PendingMarker(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, tr, nil)

	a := lateStartAlert()
	_, _, err := d.marker.Acquire(context.Background(), a.IdempotencyKey())
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), a)
	assert.ErrorIs(t, err, notification.ErrSendInProgress)
	assert.Empty(t, tr.sent)
}

func TestDispatch_DirectoryError(t *testing.T) {
	d := newTestDispatcher(t, &fakeDirectory{err: errors.New("db down")}, &fakeTransport{}, nil)

	_, err := d.Dispatch(context.Background(), lateStartAlert())
	require.Error(t, err)
	assert.NotErrorIs(t, err, notification.ErrConfigurationMissing)
}

func TestDispatch_UnknownType(t *testing.T) {
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, &fakeTransport{}, nil)

	a := lateStartAlert()
	a.Type = "payroll"
	_, err := d.Dispatch(context.Background(), a)
	assert.ErrorIs(t, err, notification.ErrUnknownTemplate)
}

func TestDispatch_EveryTypeRenders(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDispatcher(t, &fakeDirectory{admins: admins}, tr, nil)

	for i, typ := range []alert.Type{
		alert.TypeLateStart,
		alert.TypeLateEnd,
		alert.TypeLongBreak,
		alert.TypeMissingClockOut,
		alert.TypeOvertimePreparation,
	} {
		a := lateStartAlert()
		a.Type = typ
		_, err := d.Dispatch(context.Background(), a)
		require.NoError(t, err, typ)
		assert.Len(t, tr.sent, i+1)
	}
}
