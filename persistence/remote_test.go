package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence/rtdbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteStoreRejectsBadURL(t *testing.T) {
	_, err := persistence.NewRemoteStore(config.RemoteConfig{DatabaseURL: "paradise.firebaseio.com"})
	assert.Error(t, err)
}

func TestRemoteStoreStatusErrors(t *testing.T) {
	srv := rtdbtest.NewServer()
	srv.Token = "secret"
	defer srv.Close()
	s, err := persistence.NewRemoteStore(config.RemoteConfig{DatabaseURL: srv.URL, AuthToken: "wrong"})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Read(context.Background(), "users")
	var remoteErr *persistence.RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, 401, remoteErr.StatusCode)
	assert.Equal(t, "read", remoteErr.Op)

	_, err = s.Subscribe(context.Background(), "users", func(any) {})
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "subscribe", remoteErr.Op)
}

func TestRemoteStreamIgnoresKeepAliveAndEndsOnRevoke(t *testing.T) {
	srv := rtdbtest.NewServer()
	defer srv.Close()
	s, err := persistence.NewRemoteStore(config.RemoteConfig{DatabaseURL: srv.URL})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	values := make(chan any, 8)
	unsubscribe, err := s.Subscribe(ctx, "notifications/u1", func(v any) { values <- v })
	require.NoError(t, err)
	defer unsubscribe()
	assert.Nil(t, next(t, values))

	srv.KeepAlive()
	require.NoError(t, s.Write(ctx, "notifications/u1/n1", map[string]any{"title": "oi"}))
	assert.Equal(t, map[string]any{"n1": map[string]any{"title": "oi"}}, next(t, values))

	srv.Revoke()
	require.Eventually(t, func() bool { return srv.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Write(ctx, "notifications/u1/n2", map[string]any{"title": "late"}))
	select {
	case v := <-values:
		t.Fatalf("delivery after revoke: %v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRemoteSubscriptionBelowWrite(t *testing.T) {
	srv := rtdbtest.NewServer()
	defer srv.Close()
	s, err := persistence.NewRemoteStore(config.RemoteConfig{DatabaseURL: srv.URL})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	values := make(chan any, 8)
	unsubscribe, err := s.Subscribe(ctx, "settings/background", func(v any) { values <- v })
	require.NoError(t, err)
	defer unsubscribe()
	assert.Nil(t, next(t, values))
	require.NoError(t, s.Write(ctx, "settings", map[string]any{"background": map[string]any{"login": "https://x/login.png"}}))
	assert.Equal(t, map[string]any{"login": "https://x/login.png"}, next(t, values))
}
