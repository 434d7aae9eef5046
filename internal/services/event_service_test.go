package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecentEventsForUserWithoutEventsIsEmptyNotNil(t *testing.T) {
	events := NewEventService(setupDB(t, "ev_empty"))

	recorded, err := events.GetRecentEventsForUser(context.Background(), "nobody", 10)
	require.NoError(t, err)
	require.NotNil(t, recorded)
	require.Empty(t, recorded)
}

func TestRecentEventsScopedAndLimited(t *testing.T) {
	events := NewEventService(setupDB(t, "ev_scoped"))
	ctx := context.Background()

	userA, userB := "user-a", "user-b"
	for i := 0; i < 3; i++ {
		require.NoError(t, events.CreateEvent(ctx, "auth.login", "info", "logged in", &userA))
	}
	require.NoError(t, events.CreateEvent(ctx, "auth.login", "info", "logged in", &userB))

	recorded, err := events.GetRecentEventsForUser(ctx, userA, 2)
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	for _, event := range recorded {
		require.NotNil(t, event.UserID)
		require.Equal(t, userA, *event.UserID)
	}
}
