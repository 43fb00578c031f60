package persistence_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence/rtdbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) persistence.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"buntdb": func(t *testing.T) persistence.Store {
			s, err := persistence.NewLocalStore(config.LocalConfig{Type: "buntdb", Path: ":memory:", PollInterval: 10 * time.Millisecond})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"buntdb-hash": func(t *testing.T) persistence.Store {
			s, err := persistence.NewLocalStore(config.LocalConfig{
				Type:         "buntdb",
				Path:         filepath.Join(t.TempDir(), "local.db"),
				LockPath:     filepath.Join(t.TempDir(), "local.db.lock"),
				PollInterval: 10 * time.Millisecond,
				Fingerprint:  "hash",
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"sqlite": func(t *testing.T) persistence.Store {
			s, err := persistence.NewLocalStore(config.LocalConfig{
				Type:         "sqlite",
				DSN:          filepath.Join(t.TempDir(), "local.sqlite"),
				PollInterval: 10 * time.Millisecond,
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"remote": func(t *testing.T) persistence.Store {
			srv := rtdbtest.NewServer()
			srv.Token = "secret"
			t.Cleanup(srv.Close)
			s, err := persistence.NewRemoteStore(config.RemoteConfig{DatabaseURL: srv.URL, AuthToken: "secret", Timeout: 5 * time.Second})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func next(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("no delivery")
		return nil
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range backends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Run("read missing", func(t *testing.T) {
				s := factory(t)
				v, err := s.Read(context.Background(), "users/nobody")
				require.NoError(t, err)
				assert.Nil(t, v)
			})

			t.Run("write read", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Write(ctx, "users/u1", map[string]any{"name": "Ana", "age": 30, "gm": false}))
				v, err := s.Read(ctx, "users/u1")
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"name": "Ana", "age": float64(30), "gm": false}, v)

				v, err = s.Read(ctx, "/users/u1/name/")
				require.NoError(t, err)
				assert.Equal(t, "Ana", v)

				v, err = s.Read(ctx, "users")
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"u1": map[string]any{"name": "Ana", "age": float64(30), "gm": false}}, v)
			})

			t.Run("write replaces subtree", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Write(ctx, "a", map[string]any{"x": 1, "y": 2}))
				require.NoError(t, s.Write(ctx, "a", map[string]any{"z": 3}))
				v, err := s.Read(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"z": float64(3)}, v)

				require.NoError(t, s.Write(ctx, "a", "scalar"))
				require.NoError(t, s.Write(ctx, "a/b", true))
				v, err = s.Read(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"b": true}, v)
			})

			t.Run("patch", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Write(ctx, "posts/p1", map[string]any{"body": "hi", "authorId": "u1"}))
				require.NoError(t, s.Patch(ctx, "posts/p1", map[string]any{"body": "edited", "likes/u2": true, "authorId": nil}))
				v, err := s.Read(ctx, "posts/p1")
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"body": "edited", "likes": map[string]any{"u2": true}}, v)
				require.NoError(t, s.Patch(ctx, "posts/p1", nil))
			})

			t.Run("delete and empty values", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Write(ctx, "a/b", 1))
				require.NoError(t, s.Write(ctx, "a/c", 2))
				require.NoError(t, s.Delete(ctx, "a/b"))
				v, err := s.Read(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"c": float64(2)}, v)

				require.NoError(t, s.Write(ctx, "a", map[string]any{}))
				v, err = s.Read(ctx, "a")
				require.NoError(t, err)
				assert.Nil(t, v)
			})

			t.Run("arrays", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Write(ctx, "licenses/u1/items", []map[string]string{{"id": "ira"}, {"id": "gula"}}))
				v, err := s.Read(ctx, "licenses/u1")
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"items": []any{
					map[string]any{"id": "ira"},
					map[string]any{"id": "gula"},
				}}, v)
			})

			t.Run("invalid path", func(t *testing.T) {
				s := factory(t)
				assert.Error(t, s.Write(context.Background(), "users/a.b", 1))
				_, err := s.Read(context.Background(), "users/$x")
				assert.Error(t, err)
			})

			t.Run("subscribe", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				require.NoError(t, s.Write(ctx, "messages/c1/m1", map[string]any{"body": "hello"}))
				values := make(chan any, 32)
				unsubscribe, err := s.Subscribe(ctx, "messages/c1", func(v any) { values <- v })
				require.NoError(t, err)
				assert.Equal(t, map[string]any{"m1": map[string]any{"body": "hello"}}, next(t, values))

				require.NoError(t, s.Write(ctx, "messages/c1/m2", map[string]any{"body": "world"}))
				assert.Equal(t, map[string]any{
					"m1": map[string]any{"body": "hello"},
					"m2": map[string]any{"body": "world"},
				}, next(t, values))

				require.NoError(t, s.Patch(ctx, "messages/c1", map[string]any{"m1": nil}))
				assert.Equal(t, map[string]any{"m2": map[string]any{"body": "world"}}, next(t, values))

				require.NoError(t, s.Delete(ctx, "messages"))
				assert.Nil(t, next(t, values))

				unsubscribe()
				unsubscribe()
				time.Sleep(50 * time.Millisecond)
				for len(values) > 0 {
					<-values
				}
				require.NoError(t, s.Write(ctx, "messages/c1/m3", map[string]any{"body": "late"}))
				select {
				case v := <-values:
					t.Fatalf("delivery after unsubscribe: %v", v)
				case <-time.After(100 * time.Millisecond):
				}
			})

			t.Run("subscriptions are independent", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				a := make(chan any, 8)
				b := make(chan any, 8)
				unsubA, err := s.Subscribe(ctx, "visibility/u1", func(v any) { a <- v })
				require.NoError(t, err)
				unsubB, err := s.Subscribe(ctx, "visibility/u1", func(v any) { b <- v })
				require.NoError(t, err)
				defer unsubB()
				assert.Nil(t, next(t, a))
				assert.Nil(t, next(t, b))
				unsubA()
				require.NoError(t, s.Write(ctx, "visibility/u1", map[string]any{"chat": false}))
				assert.Equal(t, map[string]any{"chat": false}, next(t, b))
			})

			t.Run("subscription ends with context", func(t *testing.T) {
				s := factory(t)
				ctx, cancel := context.WithCancel(context.Background())
				values := make(chan any, 8)
				_, err := s.Subscribe(ctx, "feed", func(v any) { values <- v })
				require.NoError(t, err)
				assert.Nil(t, next(t, values))
				cancel()
				time.Sleep(50 * time.Millisecond)
				require.NoError(t, s.Write(context.Background(), "feed/p1", "x"))
				select {
				case v := <-values:
					t.Fatalf("delivery after cancel: %v", v)
				case <-time.After(100 * time.Millisecond):
				}
			})

			t.Run("closed", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Close())
				_, err := s.Read(context.Background(), "a")
				assert.ErrorIs(t, err, persistence.ErrClosed)
				assert.ErrorIs(t, s.Write(context.Background(), "a", 1), persistence.ErrClosed)
				_, err = s.Subscribe(context.Background(), "a", func(any) {})
				assert.ErrorIs(t, err, persistence.ErrClosed)
			})
		})
	}
}

func TestNewStoreProbe(t *testing.T) {
	cfg, err := config.ReadConfiguration("", nil)
	require.NoError(t, err)
	cfg.Local.Path = ":memory:"
	cfg.Local.LockPath = ""
	s, err := persistence.NewStore(cfg)
	require.NoError(t, err)
	assert.False(t, s.Remote())
	require.NoError(t, s.Close())

	srv := rtdbtest.NewServer()
	defer srv.Close()
	cfg.Remote = config.RemoteConfig{
		APIKey:            "key",
		AuthDomain:        "paradise.firebaseapp.com",
		DatabaseURL:       srv.URL,
		ProjectID:         "paradise",
		StorageBucket:     "paradise.appspot.com",
		MessagingSenderID: "1",
		AppID:             "app",
		Timeout:           time.Second,
	}
	s, err = persistence.NewStore(cfg)
	require.NoError(t, err)
	assert.True(t, s.Remote())
	require.NoError(t, s.Close())
}
