package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
)

const announceTimeout = time.Minute

// Broadcaster sends a notification to every user.
type Broadcaster interface {
	SendGlobalNotification(ctx context.Context, title, body string) ([]types.Notification, error)
}

// Announcer sends the configured announcements on their cron schedules (UTC). A run that is still going when
// the next one is due causes the next one to be skipped.
type Announcer struct {
	cronRunner *cron.Cron
	target     Broadcaster
	logger     hclog.Logger
}

func NewAnnouncer(target Broadcaster, announcements []config.AnnouncementConfig) (*Announcer, error) {
	a := &Announcer{
		cronRunner: cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		target:     target,
		logger:     globals.AppLogger.Named("schedule"),
	}
	for _, ann := range announcements {
		ann := ann
		if ann.Title == "" {
			return nil, fmt.Errorf("announcement %q has no title", ann.Name)
		}
		if _, err := a.cronRunner.AddFunc(ann.Spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
			defer cancel()
			if err := a.Announce(ctx, ann); err != nil {
				a.logger.Error("announcement failed", "name", ann.Name, "error", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("announcement %q: %w", ann.Name, err)
		}
	}
	return a, nil
}

// Announce sends ann right away.
func (a *Announcer) Announce(ctx context.Context, ann config.AnnouncementConfig) error {
	sent, err := a.target.SendGlobalNotification(ctx, ann.Title, ann.Body)
	a.logger.Info("announcement sent", "name", ann.Name, "recipients", len(sent))
	return err
}

// Entries returns the number of scheduled announcements.
func (a *Announcer) Entries() int {
	return len(a.cronRunner.Entries())
}

func (a *Announcer) Start() {
	a.cronRunner.Start()
}

// Stop stops the scheduler and waits for running announcements to finish.
func (a *Announcer) Stop() {
	<-a.cronRunner.Stop().Done()
}
