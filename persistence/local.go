package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/hashicorp/go-hclog"
)

// leafTx is a transaction on a medium that maps full leaf paths to JSON text.
type leafTx interface {
	get(key string) (string, bool, error)
	set(key, value string) error
	del(key string) error
	// scan visits every key starting with prefix in key order until fn returns false.
	scan(prefix string, fn func(key, value string) bool) error
}

// medium is the persistent key/value backing of a LocalStore.
type medium interface {
	update(fn func(tx leafTx) error) error
	view(fn func(tx leafTx) error) error
	close() error
}

// LocalStore keeps the tree in a process local medium, one key per scalar leaf. Subscriptions are emulated by
// polling.
type LocalStore struct {
	medium medium
	poller *Poller
	logger hclog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore opens the medium selected by cfg.Type.
func NewLocalStore(cfg config.LocalConfig) (*LocalStore, error) {
	var m medium
	var err error
	switch cfg.Type {
	case "", "buntdb":
		m, err = OpenBuntMedium(cfg.Path, cfg.LockPath)
	case "sqlite", "postgres":
		m, err = OpenGormMedium(cfg.Type, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown local store type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return newLocalStore(m, cfg.PollInterval, FingerprintByName(cfg.Fingerprint)), nil
}

func newLocalStore(m medium, interval time.Duration, fingerprint Fingerprint) *LocalStore {
	logger := globals.AppLogger.Named("local")
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalStore{
		medium: m,
		poller: &Poller{Interval: interval, Fingerprint: fingerprint, Logger: logger.Named("poller")},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *LocalStore) Remote() bool {
	return false
}

func (s *LocalStore) Read(_ context.Context, path string) (any, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	key := joinPath(segs)
	leaves := make(map[string]string)
	err = s.medium.view(func(tx leafTx) error {
		return subtree(tx, key, func(k, v string) {
			leaves[k] = v
		})
	})
	if err != nil {
		return nil, err
	}
	return assemble(key, leaves, s.logger), nil
}

func (s *LocalStore) Write(_ context.Context, path string, value any) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	node, err := normalize(value)
	if err != nil {
		return err
	}
	return s.medium.update(func(tx leafTx) error {
		return writeNode(tx, segs, node)
	})
}

// Patch writes all fields in one medium transaction.
func (s *LocalStore) Patch(_ context.Context, path string, fields map[string]any) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	type child struct {
		segs []string
		node any
	}
	children := make([]child, 0, len(fields))
	for name, value := range fields {
		rel, err := splitPath(name)
		if err != nil {
			return err
		}
		if len(rel) == 0 {
			return fmt.Errorf("invalid patch field %q", name)
		}
		node, err := normalize(value)
		if err != nil {
			return err
		}
		full := make([]string, 0, len(segs)+len(rel))
		full = append(append(full, segs...), rel...)
		children = append(children, child{full, node})
	}
	if len(children) == 0 {
		return nil
	}
	return s.medium.update(func(tx leafTx) error {
		for _, c := range children {
			if err := writeNode(tx, c.segs, c.node); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	return s.Write(ctx, path, nil)
}

func (s *LocalStore) Subscribe(ctx context.Context, path string, fn func(value any)) (Unsubscribe, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	if _, err := splitPath(path); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	unsubscribe := s.poller.Poll(ctx, func(ctx context.Context) (any, error) {
		return s.Read(ctx, path)
	}, fn)
	return func() {
		stop()
		cancel()
		unsubscribe()
	}, nil
}

// Close stops all subscriptions and closes the medium.
func (s *LocalStore) Close() error {
	if s.ctx.Err() != nil {
		return nil
	}
	s.cancel()
	return s.medium.close()
}

// subtree visits the leaf at key and every leaf below it.
func subtree(tx leafTx, key string, fn func(k, v string)) error {
	if key == "" {
		return tx.scan("", func(k, v string) bool {
			fn(k, v)
			return true
		})
	}
	v, ok, err := tx.get(key)
	if err != nil {
		return err
	}
	if ok {
		fn(key, v)
	}
	return tx.scan(key+"/", func(k, v string) bool {
		fn(k, v)
		return true
	})
}

// writeNode replaces the subtree at segs with node. Leaves stored at ancestors of segs are removed so the tree
// stays consistent.
func writeNode(tx leafTx, segs []string, node any) error {
	for i := 0; i < len(segs); i++ {
		if err := tx.del(joinPath(segs[:i])); err != nil {
			return err
		}
	}
	key := joinPath(segs)
	stale := make([]string, 0)
	if err := subtree(tx, key, func(k, _ string) {
		stale = append(stale, k)
	}); err != nil {
		return err
	}
	for _, k := range stale {
		if err := tx.del(k); err != nil {
			return err
		}
	}
	leaves := make(map[string]string)
	if err := flatten(key, node, leaves); err != nil {
		return err
	}
	for k, v := range leaves {
		if err := tx.set(k, v); err != nil {
			return err
		}
	}
	return nil
}
