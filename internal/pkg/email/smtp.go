package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/vprep/preparator-backend-go/internal/config"
)

const (
	maxRetries         = 3
	defaultSendTimeout = time.Minute
)

// ErrDeliveryUnknown means the connection failed after the message body was
// handed to the server. The server may have accepted it.
var ErrDeliveryUnknown = errors.New("email delivery outcome unknown")

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPTransport struct {
	cfg         config.SMTPConfig
	retryCfg    retry.Config
	sendTimeout time.Duration
	send        sendFunc
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &SMTPTransport{
		cfg: cfg,
		retryCfg: retry.Config{
			MaxAttempts:   maxRetries,
			InitialDelay:  time.Second,
			BackoffPolicy: retry.BackoffExponential,
			IsRetryable:   isTransient,
		},
		sendTimeout: timeout,
		send:        sendMail,
	}
}

// Send delivers msg. The exchange runs detached from ctx's deadline and is
// bounded by the transport's own send timeout, so the returned error always
// reflects what the server did.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", ErrNoRecipients
	}

	key := msg.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	id := messageID(key, senderDomain(t.cfg.From))
	raw := t.build(msg, id)

	var auth smtp.Auth
	if t.cfg.Username != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.sendTimeout)
	defer cancel()

	attempt := 0
	r := retry.New[struct{}](t.retryCfg)
	_, err := r.Do(sendCtx, func(ctx context.Context) (struct{}, error) {
		attempt++
		err := t.send(ctx, addr, auth, t.cfg.From, msg.To, raw)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to send email",
				"subject", msg.Subject,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", err,
			)
		}
		return struct{}{}, err
	})
	if err != nil {
		if errors.Is(err, ErrDeliveryUnknown) {
			return id, err
		}
		return "", fmt.Errorf("failed to send email after %d attempts: %w", attempt, err)
	}

	slog.InfoContext(ctx, "Email sent successfully", "subject", msg.Subject, "recipients", len(msg.To), "attempt", attempt)
	return id, nil
}

// sendMail is smtp.SendMail over a connection bounded by ctx's deadline.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		// no terminating dot was sent, the server discards the message
		return err
	}
	if err := w.Close(); err != nil {
		var reply *textproto.Error
		if errors.As(err, &reply) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeliveryUnknown, err)
	}

	if err := c.Quit(); err != nil {
		slog.WarnContext(ctx, "SMTP quit failed after message was accepted", "error", err)
	}
	return nil
}

// isTransient reports whether a failed attempt may be retried: 4xx replies
// and network errors. 5xx replies and unknown outcomes are final.
func isTransient(err error) bool {
	if errors.Is(err, ErrDeliveryUnknown) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var reply *textproto.Error
	if errors.As(err, &reply) {
		return reply.Code >= 400 && reply.Code < 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (t *SMTPTransport) build(msg Message, id string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", t.cfg.FromName, t.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", id)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	return []byte(b.String())
}

func messageID(key, domain string) string {
	return "<" + key + "@" + domain + ">"
}

func senderDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return from[i+1:]
	}
	return "localhost"
}
