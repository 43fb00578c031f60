package repository

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/assets"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/folkengine/goname"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Repository exposes every domain operation on top of a persistence.Store. It keeps no state of its own, so the
// same operations behave identically on the remote and the local store.
type Repository struct {
	store    persistence.Store
	now      func() time.Time
	newID    func() string
	pick     func(n int) int
	newName  func() string
	catalog  types.LicenseCatalog
	uploader assets.Uploader
	logger   hclog.Logger
	settings *Settings
}

type Option func(*Repository)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithIDGenerator replaces the random id generator.
func WithIDGenerator(newID func() string) Option {
	return func(r *Repository) {
		r.newID = newID
	}
}

// WithPicker replaces the random choice used for license assignment. pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(r *Repository) {
		r.pick = pick
	}
}

// WithNameGenerator replaces the generator used for unnamed NPCs.
func WithNameGenerator(newName func() string) Option {
	return func(r *Repository) {
		r.newName = newName
	}
}

func WithLicenseCatalog(catalog types.LicenseCatalog) Option {
	return func(r *Repository) {
		r.catalog = catalog
	}
}

// WithUploader sets where uploaded backgrounds go. Without one they are embedded as data URLs.
func WithUploader(uploader assets.Uploader) Option {
	return func(r *Repository) {
		r.uploader = uploader
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

func New(store persistence.Store, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
		pick:     lockedPicker(rand.New(rand.NewSource(time.Now().UnixNano()))),
		newName:  func() string { return goname.New(goname.FantasyMap).FirstLast() },
		catalog:  types.Sins,
		uploader: assets.DataURLUploader{},
		logger:   globals.AppLogger.Named("repository"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.settings = &Settings{store: r.store, uploader: r.uploader, newID: r.newID, logger: r.logger.Named("settings")}
	return r
}

// lockedPicker serializes access to rnd, which is not safe for concurrent use.
func lockedPicker(rnd *rand.Rand) func(n int) int {
	var mu sync.Mutex
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return rnd.Intn(n)
	}
}

// Remote reports whether the repository works against the realtime database.
func (r *Repository) Remote() bool {
	return r.store.Remote()
}

// Settings returns the settings sub-repository sharing this repository's store.
func (r *Repository) Settings() *Settings {
	return r.settings
}

func (r *Repository) timestamp() int64 {
	return r.now().UnixMilli()
}

// subscribe decodes every delivered value with decodeFn before passing it on. Values that cannot be decoded
// are logged and dropped.
func subscribe[T any](ctx context.Context, r *Repository, path string, decodeFn func(any) (T, error), fn func(T)) (persistence.Unsubscribe, error) {
	return r.store.Subscribe(ctx, path, func(value any) {
		decoded, err := decodeFn(value)
		if err != nil {
			r.logger.Error("could not decode subscription value", "path", path, "error", err)
			return
		}
		fn(decoded)
	})
}
