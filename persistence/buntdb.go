package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/tidwall/buntdb"
)

// BuntMedium stores leaves in a buntdb file. A lock file keeps a second process from opening the same file.
type BuntMedium struct {
	db   *buntdb.DB
	lock *flock.Flock
}

// OpenBuntMedium opens (or creates) the buntdb file at path. Use ":memory:" for a throwaway store. lockPath may be
// empty to skip locking.
func OpenBuntMedium(path, lockPath string) (*BuntMedium, error) {
	if path == "" {
		return nil, fmt.Errorf("no buntdb path configured")
	}
	var lock *flock.Flock
	if lockPath != "" && path != ":memory:" {
		lock = flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("could not lock %s: %w", lockPath, err)
		}
		if !locked {
			return nil, fmt.Errorf("local store %s is in use by another process", path)
		}
	}
	db, err := buntdb.Open(path)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}
	return &BuntMedium{db: db, lock: lock}, nil
}

func (m *BuntMedium) update(fn func(tx leafTx) error) error {
	return m.db.Update(func(tx *buntdb.Tx) error {
		return fn(buntTx{tx})
	})
}

func (m *BuntMedium) view(fn func(tx leafTx) error) error {
	return m.db.View(func(tx *buntdb.Tx) error {
		return fn(buntTx{tx})
	})
}

func (m *BuntMedium) close() error {
	err := m.db.Close()
	if m.lock != nil {
		if unlockErr := m.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

type buntTx struct {
	tx *buntdb.Tx
}

func (t buntTx) get(key string) (string, bool, error) {
	v, err := t.tx.Get(key)
	if errors.Is(err, buntdb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (t buntTx) set(key, value string) error {
	_, _, err := t.tx.Set(key, value, nil)
	return err
}

func (t buntTx) del(key string) error {
	_, err := t.tx.Delete(key)
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

func (t buntTx) scan(prefix string, fn func(key, value string) bool) error {
	if prefix == "" {
		return t.tx.Ascend("", fn)
	}
	return t.tx.AscendGreaterOrEqual("", prefix, func(key, value string) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		return fn(key, value)
	})
}
