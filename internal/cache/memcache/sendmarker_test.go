package memcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vprep/preparator-backend-go/internal/domain/notification"
)

func TestSendMarker_Lifecycle(t *testing.T) {
	now := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	m := NewSendMarker(time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	state, _, err := m.Acquire(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, notification.MarkerAcquired, state)

	state, _, _ = m.Acquire(ctx, "k")
	require.Equal(t, notification.MarkerPending, state)

	now = now.Add(2 * time.Minute)
	state, _, _ = m.Acquire(ctx, "k")
	require.Equal(t, notification.MarkerAcquired, state)

	require.NoError(t, m.Confirm(ctx, "k", "<k@vprep.fr>"))
	state, id, _ := m.Acquire(ctx, "k")
	require.Equal(t, notification.MarkerSent, state)
	require.Equal(t, "<k@vprep.fr>", id)

	require.NoError(t, m.Release(ctx, "k"))
	state, _, _ = m.Acquire(ctx, "k")
	require.Equal(t, notification.MarkerAcquired, state)
}
