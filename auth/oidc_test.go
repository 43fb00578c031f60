package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T, verify verifyFunc) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator([]config.OIDCConfig{{Name: "google", ProviderUrl: "https://accounts.google.com", TokenCacheSize: 4}})
	require.NoError(t, err)
	a.providers["google"].verify = verify
	return a
}

func TestAuthenticateCachesVerifiedTokens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	a := newTestAuthenticator(t, func(_ context.Context, token string) (Identity, error) {
		calls++
		return Identity{UserId: "sub-" + token, Name: "Bruna", Expiry: now.Add(time.Hour)}, nil
	})
	a.now = func() time.Time { return now }

	id, err := a.Authenticate(context.Background(), "tok", "google")
	require.NoError(t, err)
	assert.Equal(t, "sub-tok", id.UserId)
	_, err = a.Authenticate(context.Background(), "tok", "google")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Hour)
	_, err = a.Authenticate(context.Background(), "tok", "google")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestAuthenticateFailures(t *testing.T) {
	a := newTestAuthenticator(t, func(_ context.Context, token string) (Identity, error) {
		if token == "anonymous" {
			return Identity{}, nil
		}
		return Identity{}, errors.New("oidc: malformed jwt")
	})
	_, err := a.Authenticate(context.Background(), "garbage", "google")
	assert.Error(t, err)
	_, err = a.Authenticate(context.Background(), "anonymous", "google")
	assert.Error(t, err)
	_, err = a.Authenticate(context.Background(), "tok", "github")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	id, err := a.Authenticate(context.Background(), "", "google")
	require.NoError(t, err)
	assert.Empty(t, id.UserId)
}

func TestAuthenticateRetriesFailedDiscovery(t *testing.T) {
	a, err := NewAuthenticator([]config.OIDCConfig{{Name: "google", ProviderUrl: "https://accounts.google.com"}})
	require.NoError(t, err)
	discoveries := 0
	a.discover = func(cfg config.OIDCConfig) (verifyFunc, error) {
		discoveries++
		if discoveries == 1 {
			return nil, errors.New("dial tcp: i/o timeout")
		}
		return func(_ context.Context, token string) (Identity, error) {
			return Identity{UserId: "sub-" + token}, nil
		}, nil
	}

	_, err = a.Authenticate(context.Background(), "tok", "google")
	assert.Error(t, err)
	id, err := a.Authenticate(context.Background(), "tok", "google")
	require.NoError(t, err)
	assert.Equal(t, "sub-tok", id.UserId)
	_, err = a.Authenticate(context.Background(), "other", "google")
	require.NoError(t, err)
	assert.Equal(t, 2, discoveries)
}

func TestNewAuthenticatorRejectsBadConfig(t *testing.T) {
	_, err := NewAuthenticator([]config.OIDCConfig{{Name: ""}})
	assert.Error(t, err)
	_, err = NewAuthenticator([]config.OIDCConfig{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)

	a, err := NewAuthenticator(nil)
	require.NoError(t, err)
	assert.False(t, a.Enabled())
}
