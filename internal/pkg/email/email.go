package email

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vprep/preparator-backend-go/internal/config"
)

var ErrNoRecipients = errors.New("email has no recipients")

// Message is a rendered HTML email. IdempotencyKey becomes the Message-ID
// so retried sends collapse into one thread on the receiving side.
type Message struct {
	To             []string
	Subject        string
	HTMLBody       string
	IdempotencyKey string
}

// Transport sends one message and returns its Message-ID.
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NewTransport returns an SMTP transport, or a NoopTransport when SMTP is not
// configured.
func NewTransport(cfg config.SMTPConfig) Transport {
	if cfg.Host == "" {
		slog.Warn("SMTP not configured, alert emails will be logged only")
		return NoopTransport{}
	}
	return NewSMTPTransport(cfg)
}

// NoopTransport accepts every message without delivering it.
type NoopTransport struct{}

func (NoopTransport) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", ErrNoRecipients
	}
	id := msg.IdempotencyKey
	if id == "" {
		id = uuid.NewString()
	}
	slog.InfoContext(ctx, "Email skipped, no transport configured", "to", len(msg.To), "subject", msg.Subject)
	return messageID(id, "localhost"), nil
}
