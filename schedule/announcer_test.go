package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (r *recorder) SendGlobalNotification(_ context.Context, title, body string) ([]types.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return []types.Notification{{Title: title, Body: body}}, r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

func TestNewAnnouncerValidates(t *testing.T) {
	_, err := NewAnnouncer(&recorder{}, []config.AnnouncementConfig{{Name: "bad", Spec: "every tuesday", Title: "x"}})
	assert.Error(t, err)
	_, err = NewAnnouncer(&recorder{}, []config.AnnouncementConfig{{Name: "untitled", Spec: "@daily"}})
	assert.Error(t, err)

	a, err := NewAnnouncer(&recorder{}, []config.AnnouncementConfig{
		{Name: "weekly", Spec: "@weekly", Title: "Treino"},
		{Name: "monday", Spec: "0 9 * * MON", Title: "Segunda"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, a.Entries())
}

func TestAnnouncerFires(t *testing.T) {
	r := &recorder{}
	a, err := NewAnnouncer(r, []config.AnnouncementConfig{{Name: "tick", Spec: "@every 1s", Title: "Aviso", Body: "Treino"}})
	require.NoError(t, err)
	a.Start()
	assert.Eventually(t, func() bool { return r.count() > 0 }, 3*time.Second, 20*time.Millisecond)
	a.Stop()
	assert.Equal(t, "Aviso", r.titles[0])
}

func TestAnnounceReturnsBroadcastError(t *testing.T) {
	r := &recorder{err: errors.New("notify u2: unavailable")}
	a, err := NewAnnouncer(r, nil)
	require.NoError(t, err)
	assert.Error(t, a.Announce(context.Background(), config.AnnouncementConfig{Name: "now", Title: "Aviso"}))
	assert.Equal(t, 1, r.count())
}
