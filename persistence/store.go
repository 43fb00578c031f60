package persistence

import (
	"context"
	"errors"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
)

// ErrClosed is returned by every operation on a store after Close.
var ErrClosed = errors.New("store is closed")

// Unsubscribe ends a subscription. Only the first call has an effect.
type Unsubscribe func()

// Store is the hierarchical JSON tree both backends expose. Paths are slash separated, values are what
// encoding/json decodes into an interface (map[string]any, []any, string, float64, bool), and nil means absent.
type Store interface {
	// Read returns the value at path or nil if nothing is stored there.
	Read(ctx context.Context, path string) (any, error)
	// Write replaces the subtree at path. A nil value or an empty object deletes it.
	Write(ctx context.Context, path string, value any) error
	// Patch writes every field as a child of path, leaving the other children alone. A nil field deletes that
	// child. Field names may contain slashes to address deeper descendants.
	Patch(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	// Subscribe calls fn with the current value at path and again on every change. The subscription ends when
	// the returned Unsubscribe is called or ctx is done. Calls to fn are serialized per subscription.
	Subscribe(ctx context.Context, path string, fn func(value any)) (Unsubscribe, error)
	// Remote reports whether the store talks to the realtime database.
	Remote() bool
	Close() error
}

// NewStore decides once which backend serves the process: the realtime database if every required remote field
// is configured, the local store otherwise. There is no later retry.
func NewStore(cfg *config.Config) (Store, error) {
	if cfg.Remote.Ready() {
		globals.AppLogger.Info("using remote store", "database_url", cfg.Remote.DatabaseURL)
		return NewRemoteStore(cfg.Remote)
	}
	globals.AppLogger.Info("remote store not configured, using local store",
		"missing", cfg.Remote.MissingField(), "type", cfg.Local.Type)
	return NewLocalStore(cfg.Local)
}
