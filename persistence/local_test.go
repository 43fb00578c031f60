package persistence_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"
)

func fileConfig(t *testing.T) config.LocalConfig {
	dir := t.TempDir()
	return config.LocalConfig{
		Type:         "buntdb",
		Path:         filepath.Join(dir, "local.db"),
		LockPath:     filepath.Join(dir, "local.db.lock"),
		PollInterval: 10 * time.Millisecond,
	}
}

func TestLocalStoreSurvivesRestart(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()
	s, err := persistence.NewLocalStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "stats/u1", map[string]any{"speed": 90, "ovr": 75}))
	require.NoError(t, s.Close())

	s, err = persistence.NewLocalStore(cfg)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Read(ctx, "stats/u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"speed": float64(90), "ovr": float64(75)}, v)
}

func TestLocalStoreIsLocked(t *testing.T) {
	cfg := fileConfig(t)
	s, err := persistence.NewLocalStore(cfg)
	require.NoError(t, err)
	defer s.Close()
	_, err = persistence.NewLocalStore(cfg)
	assert.Error(t, err)
}

func TestLocalStoreSkipsCorruptedValues(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()
	s, err := persistence.NewLocalStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "users/u1", map[string]any{"name": "Ana", "role": "player"}))
	require.NoError(t, s.Close())

	db, err := buntdb.Open(cfg.Path)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("users/u1/name", `{"broken`, nil)
		return err
	}))
	require.NoError(t, db.Close())

	s, err = persistence.NewLocalStore(cfg)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Read(ctx, "users/u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"role": "player"}, v)
}

func TestLocalStoreKeysArePaths(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()
	s, err := persistence.NewLocalStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "friends/u1/u2", true))
	require.NoError(t, s.Write(ctx, "friends/u10/u3", true))
	require.NoError(t, s.Close())

	db, err := buntdb.Open(cfg.Path)
	require.NoError(t, err)
	defer db.Close()
	keys := make([]string, 0)
	require.NoError(t, db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			keys = append(keys, key+"="+value)
			return true
		})
	}))
	assert.Equal(t, []string{"friends/u1/u2=true", "friends/u10/u3=true"}, keys)
}

func TestLocalStoreUnknownType(t *testing.T) {
	_, err := persistence.NewLocalStore(config.LocalConfig{Type: "redis"})
	assert.Error(t, err)
}

func TestLocalStorePrefixDoesNotLeak(t *testing.T) {
	s, err := persistence.NewLocalStore(config.LocalConfig{Type: "buntdb", Path: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "friends/u1/u2", true))
	require.NoError(t, s.Write(ctx, "friends/u10/u3", true))
	v, err := s.Read(ctx, "friends/u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"u2": true}, v)
	require.NoError(t, s.Delete(ctx, "friends/u1"))
	v, err = s.Read(ctx, "friends")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"u10": map[string]any{"u3": true}}, v)
}
