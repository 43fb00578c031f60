package persistence

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/hashstructure/v2"
)

// A Fingerprint reduces a value to a string that changes whenever the value changes.
type Fingerprint func(value any) (string, error)

// SnapshotFingerprint uses the JSON text of the value. Object keys are sorted by encoding/json, so equal trees
// give equal snapshots.
func SnapshotFingerprint(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// HashFingerprint hashes the value structurally. It avoids keeping a full copy of large subtrees around between
// polls.
func HashFingerprint(value any) (string, error) {
	h, err := hashstructure.Hash(value, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(h, 16), nil
}

// FingerprintByName maps the local.fingerprint setting to a strategy. Unknown names fall back to snapshots.
func FingerprintByName(name string) Fingerprint {
	if name == "hash" {
		return HashFingerprint
	}
	return SnapshotFingerprint
}

// Poller emulates push notifications for stores that cannot push. It delivers the current value at once and
// then again whenever the fingerprint of a re-read differs from the last delivered one. While the first read
// keeps failing it is retried with a backoff starting at an eighth of the interval.
type Poller struct {
	Interval    time.Duration
	Fingerprint Fingerprint
	Logger      hclog.Logger
}

// Poll starts polling read until ctx is done or the returned Unsubscribe is called.
func (p *Poller) Poll(ctx context.Context, read func(context.Context) (any, error), fn func(any)) Unsubscribe {
	interval := p.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	fingerprint := p.Fingerprint
	if fingerprint == nil {
		fingerprint = SnapshotFingerprint
	}
	logger := p.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var last string
		delivered := false
		check := func() {
			value, err := read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("poll read failed", "error", err)
				}
				return
			}
			fp, err := fingerprint(value)
			if err != nil {
				logger.Warn("could not fingerprint polled value", "error", err)
				return
			}
			if delivered && fp == last {
				return
			}
			if ctx.Err() != nil {
				return
			}
			last, delivered = fp, true
			fn(value)
		}
		check()
		for retry := interval / 8; !delivered && retry > 0 && retry < interval; retry *= 2 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retry):
				check()
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
	return Unsubscribe(sync.OnceFunc(cancel))
}
