package notification

import "context"

// Dispatcher renders and sends one alert to the administrators.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Alert) (Result, error)
}

// SendMarker guards the window between a send and the persisted dedup flag.
type SendMarker interface {
	// Acquire claims key. When the state is MarkerSent the returned string is
	// the message id of the earlier send.
	Acquire(ctx context.Context, key string) (MarkerState, string, error)
	Confirm(ctx context.Context, key, messageID string) error
	Release(ctx context.Context, key string) error
}
