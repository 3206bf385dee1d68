package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing marks conditions that disable alerting until an
	// operator fixes them. They are not retried per candidate.
	ErrConfigurationMissing = errors.New("notification configuration missing")

	ErrNoRecipients = fmt.Errorf("%w: no active administrators with a verified email", ErrConfigurationMissing)

	// ErrSendInProgress means another run holds the send marker for this
	// alert. The alert is retried once the marker expires.
	ErrSendInProgress = errors.New("alert send already in progress")

	ErrUnknownTemplate = errors.New("no template for alert type")
)

// TransportError wraps a mail transport failure. The caller must leave the
// dedup flag unset.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mail transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
