package repository_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/WithoutFrost/Eternal-Paradise-Project/repository"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	mu      sync.Mutex
	keys    []string
	types   []string
	content map[string][]byte
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.content == nil {
		u.content = make(map[string][]byte)
	}
	u.keys = append(u.keys, key)
	u.types = append(u.types, contentType)
	u.content[key] = data
	return "https://cdn.example/" + key, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestBackgroundURLs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		s := f.repo.Settings()
		settings, err := s.GetSettings(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, types.AppSettings{}, settings)

		require.NoError(t, s.SetBackgroundURL(f.ctx, types.BackgroundLogin, "https://img/login.png"))
		require.NoError(t, s.SetBackgroundURL(f.ctx, types.BackgroundHome, "https://img/home.png"))
		require.NoError(t, s.SetUserBackgroundURL(f.ctx, "u1", types.BackgroundHome, "https://img/mine.png"))

		effective, err := s.EffectiveSettings(f.ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "https://img/login.png", effective.Backgrounds().Login)
		assert.Equal(t, "https://img/mine.png", effective.Backgrounds().Home)

		effective, err = s.EffectiveSettings(f.ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "https://img/home.png", effective.Backgrounds().Home)

		require.NoError(t, s.SetUserBackgroundURL(f.ctx, "u1", types.BackgroundHome, ""))
		own, err := s.GetUserSettings(f.ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, own.Background)

		require.NoError(t, s.SetBackgroundURL(f.ctx, types.BackgroundLogin, ""))
		settings, err = s.GetSettings(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, types.Backgrounds{Home: "https://img/home.png"}, settings.Backgrounds())

		assert.ErrorIs(t, s.SetBackgroundURL(f.ctx, "lobby", "x"), repository.ErrInvalidArgument)
		assert.ErrorIs(t, s.SetUserBackgroundURL(f.ctx, "", types.BackgroundHome, "x"), repository.ErrInvalidArgument)
	})
}

func TestUploadBackground(t *testing.T) {
	uploader := &recordingUploader{}
	f := newFixture(t, remoteStore(t), repository.WithUploader(uploader))
	s := f.repo.Settings()

	url, err := s.UploadBackground(f.ctx, types.BackgroundLogin, "Castle.PNG", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/backgrounds/login/id001.png", url)

	url, err = s.UploadUserBackground(f.ctx, "u1", types.BackgroundHome, "noext", "image/jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/backgrounds/users/u1/home/id002.jpg", url)

	assert.Equal(t, []string{"image/png", "image/jpeg"}, uploader.types)
	assert.Equal(t, pngHeader, uploader.content["backgrounds/login/id001.png"])

	effective, err := s.EffectiveSettings(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.Backgrounds{
		Login: "https://cdn.example/backgrounds/login/id001.png",
		Home:  "https://cdn.example/backgrounds/users/u1/home/id002.jpg",
	}, effective.Backgrounds())

	_, err = s.UploadBackground(f.ctx, "lobby", "a.png", "", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, repository.ErrInvalidArgument)
	assert.Len(t, uploader.keys, 2)
}

func TestUploadFailureKeepsSettings(t *testing.T) {
	uploader := &recordingUploader{err: errors.New("bucket unavailable")}
	f := newFixture(t, localStore(t), repository.WithUploader(uploader))
	s := f.repo.Settings()
	require.NoError(t, s.SetBackgroundURL(f.ctx, types.BackgroundHome, "https://img/home.png"))

	_, err := s.UploadBackground(f.ctx, types.BackgroundHome, "a.png", "image/png", bytes.NewReader(pngHeader))
	require.Error(t, err)
	settings, err := s.GetSettings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://img/home.png", settings.Backgrounds().Home)
}

func TestUploadWithoutObjectStorage(t *testing.T) {
	f := newFixture(t, localStore(t))
	s := f.repo.Settings()
	url, err := s.UploadBackground(f.ctx, types.BackgroundHome, "bg.png", "", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)

	settings, err := s.GetSettings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, url, settings.Backgrounds().Home)
}

func TestSubscribeSettings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		s := f.repo.Settings()
		global := make(chan types.AppSettings, 64)
		own := make(chan types.AppSettings, 64)
		unsubscribe, err := s.SubscribeSettings(f.ctx, func(v types.AppSettings) { global <- v })
		require.NoError(t, err)
		defer unsubscribe()
		unsubscribeUser, err := s.SubscribeUserSettings(f.ctx, "u1", func(v types.AppSettings) { own <- v })
		require.NoError(t, err)
		defer unsubscribeUser()

		require.NoError(t, s.SetBackgroundURL(f.ctx, types.BackgroundLogin, "https://img/login.png"))
		require.NoError(t, s.SetUserBackgroundURL(f.ctx, "u1", types.BackgroundLogin, "https://img/mine.png"))
		await(t, global, func(v types.AppSettings) bool { return v.Backgrounds().Login == "https://img/login.png" })
		await(t, own, func(v types.AppSettings) bool { return v.Backgrounds().Login == "https://img/mine.png" })
	})
}
