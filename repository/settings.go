package repository

import (
	"context"
	"fmt"
	"io"

	"github.com/WithoutFrost/Eternal-Paradise-Project/assets"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/hashicorp/go-hclog"
)

// Settings manages the global settings blob and the per-user overrides, including background uploads.
type Settings struct {
	store    persistence.Store
	uploader assets.Uploader
	newID    func() string
	logger   hclog.Logger
}

func decodeSettings(value any) (types.AppSettings, error) {
	var s types.AppSettings
	if value == nil {
		return s, nil
	}
	if err := decode(value, &s); err != nil {
		return types.AppSettings{}, err
	}
	if s.Background != nil && *s.Background == (types.Backgrounds{}) {
		s.Background = nil
	}
	return s, nil
}

func (s *Settings) read(ctx context.Context, path string) (types.AppSettings, error) {
	value, err := s.store.Read(ctx, path)
	if err != nil {
		return types.AppSettings{}, err
	}
	settings, err := decodeSettings(value)
	if err != nil {
		s.logger.Warn("ignoring malformed settings", "path", path, "error", err)
		return types.AppSettings{}, nil
	}
	return settings, nil
}

func (s *Settings) GetSettings(ctx context.Context) (types.AppSettings, error) {
	return s.read(ctx, settingsRoot)
}

func (s *Settings) SubscribeSettings(ctx context.Context, fn func(types.AppSettings)) (persistence.Unsubscribe, error) {
	return s.subscribe(ctx, settingsRoot, fn)
}

// SetBackgroundURL sets the global background of the given kind. An empty url removes it.
func (s *Settings) SetBackgroundURL(ctx context.Context, kind types.BackgroundKind, url string) error {
	return s.setBackground(ctx, settingsRoot, kind, url)
}

// UploadBackground stores the image and makes it the global background of the given kind. It returns the URL
// that was stored.
func (s *Settings) UploadBackground(ctx context.Context, kind types.BackgroundKind, filename, contentType string, r io.Reader) (string, error) {
	if !kind.Valid() {
		return "", invalidArgument("unknown background kind %q", kind)
	}
	key := fmt.Sprintf("backgrounds/%s/%s.%s", kind, s.newID(), assets.Extension(filename))
	return s.upload(ctx, settingsRoot, kind, key, contentType, r)
}

func (s *Settings) GetUserSettings(ctx context.Context, userID string) (types.AppSettings, error) {
	if err := requireIDs(userID); err != nil {
		return types.AppSettings{}, err
	}
	return s.read(ctx, userSettingsPath(userID))
}

func (s *Settings) SubscribeUserSettings(ctx context.Context, userID string, fn func(types.AppSettings)) (persistence.Unsubscribe, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	return s.subscribe(ctx, userSettingsPath(userID), fn)
}

func (s *Settings) SetUserBackgroundURL(ctx context.Context, userID string, kind types.BackgroundKind, url string) error {
	if err := requireIDs(userID); err != nil {
		return err
	}
	return s.setBackground(ctx, userSettingsPath(userID), kind, url)
}

func (s *Settings) UploadUserBackground(ctx context.Context, userID string, kind types.BackgroundKind, filename, contentType string, r io.Reader) (string, error) {
	if err := requireIDs(userID); err != nil {
		return "", err
	}
	if !kind.Valid() {
		return "", invalidArgument("unknown background kind %q", kind)
	}
	key := fmt.Sprintf("backgrounds/users/%s/%s/%s.%s", userID, kind, s.newID(), assets.Extension(filename))
	return s.upload(ctx, userSettingsPath(userID), kind, key, contentType, r)
}

// EffectiveSettings returns the global settings with the user's own backgrounds taking precedence.
func (s *Settings) EffectiveSettings(ctx context.Context, userID string) (types.AppSettings, error) {
	global, err := s.GetSettings(ctx)
	if err != nil {
		return types.AppSettings{}, err
	}
	own, err := s.GetUserSettings(ctx, userID)
	if err != nil {
		return types.AppSettings{}, err
	}
	return global.Overlay(own), nil
}

func (s *Settings) setBackground(ctx context.Context, base string, kind types.BackgroundKind, url string) error {
	if !kind.Valid() {
		return invalidArgument("unknown background kind %q", kind)
	}
	p := join(base, "background", string(kind))
	if url == "" {
		return s.store.Delete(ctx, p)
	}
	return s.store.Write(ctx, p, url)
}

func (s *Settings) upload(ctx context.Context, base string, kind types.BackgroundKind, key, contentType string, r io.Reader) (string, error) {
	url, err := s.uploader.Upload(ctx, key, contentType, r)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("uploaded background", "key", key, "kind", kind)
	if err := s.setBackground(ctx, base, kind, url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *Settings) subscribe(ctx context.Context, path string, fn func(types.AppSettings)) (persistence.Unsubscribe, error) {
	return s.store.Subscribe(ctx, path, func(value any) {
		settings, err := decodeSettings(value)
		if err != nil {
			s.logger.Error("could not decode settings", "path", path, "error", err)
			return
		}
		fn(settings)
	})
}
