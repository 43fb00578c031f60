package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullRemote = `
[remote]
api_key = "key"
auth_domain = "paradise.firebaseapp.com"
database_url = "https://paradise.firebaseio.com"
project_id = "paradise"
storage_bucket = "paradise.appspot.com"
messaging_sender_id = "1234"
app_id = "1:1234:web:abcd"
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}

func TestReadConfigurationDefaults(t *testing.T) {
	cfg, err := ReadConfiguration("", nil)
	require.NoError(t, err)
	assert.False(t, cfg.Remote.Ready())
	assert.Equal(t, "api_key", cfg.Remote.MissingField())
	assert.Equal(t, "buntdb", cfg.Local.Type)
	assert.Equal(t, defaultLocalPath, cfg.Local.Path)
	assert.Equal(t, defaultLocalPath+".lock", cfg.Local.LockPath)
	assert.Equal(t, 800*time.Millisecond, cfg.Local.PollInterval)
	assert.Equal(t, defaultAddr, cfg.Server.Addr)
}

func TestReadConfigurationFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "app.toml", fullRemote+`
log_level = "warn"

[local]
type = "sqlite"
dsn = "file::memory:"
poll_interval = "250ms"

[[oidc]]
name = "google"
provider_url = "https://accounts.google.com"

[[announcement]]
name = "weekly"
spec = "@weekly"
title = "Treino"
body = "Treino semanal"
`)
	cfg, err := ReadConfiguration(p, GetFlagSet())
	require.NoError(t, err)
	assert.True(t, cfg.Remote.Ready())
	assert.Equal(t, "https://paradise.firebaseio.com", cfg.Remote.DatabaseURL)
	assert.Equal(t, "sqlite", cfg.Local.Type)
	assert.Equal(t, 250*time.Millisecond, cfg.Local.PollInterval)
	assert.Equal(t, "warn", cfg.LogLevel)
	require.Len(t, cfg.OIDCConfigs, 1)
	assert.Equal(t, defaultTokenCacheSize, cfg.OIDCConfigs[0].TokenCacheSize)
	require.Len(t, cfg.Announcements, 1)
	assert.Equal(t, "@weekly", cfg.Announcements[0].Spec)
}

func TestReadConfigurationDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.toml", fullRemote)
	writeFile(t, dir, "b.toml", "[server]\naddr = \"0.0.0.0:9000\"\n")
	cfg, err := ReadConfiguration(dir, nil)
	require.NoError(t, err)
	assert.True(t, cfg.Remote.Ready())
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestRemoteReadyRequiresEveryField(t *testing.T) {
	r := RemoteConfig{
		APIKey:            "key",
		AuthDomain:        "d",
		DatabaseURL:       "https://x.firebaseio.com",
		ProjectID:         "p",
		StorageBucket:     "b",
		MessagingSenderID: "1",
		AppID:             "a",
	}
	assert.True(t, r.Ready())
	r.AppID = "   "
	assert.False(t, r.Ready())
	assert.Equal(t, "app_id", r.MissingField())
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("EPP_LOCAL_PATH", "/tmp/other.db")
	cfg, err := ReadConfiguration("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Local.Path)
	assert.Equal(t, "/tmp/other.db.lock", cfg.Local.LockPath)
}
