package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"golang.org/x/sync/errgroup"
)

const broadcastConcurrency = 16

func (r *Repository) SendNotification(ctx context.Context, userID, title, body string) (types.Notification, error) {
	if err := requireIDs(userID); err != nil {
		return types.Notification{}, err
	}
	n := types.Notification{Id: r.newID(), UserId: userID, Title: title, Body: body, CreatedAt: r.timestamp()}
	if err := r.store.Write(ctx, join(notificationsPath(userID), n.Id), n); err != nil {
		return types.Notification{}, err
	}
	return n, nil
}

// SendGlobalNotification writes one notification per known user. The writes are independent: all of them are
// attempted, successful ones are kept, and the returned error joins every failure.
func (r *Repository) SendGlobalNotification(ctx context.Context, title, body string) ([]types.Notification, error) {
	users, err := r.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var (
		g    errgroup.Group
		mu   sync.Mutex
		sent = make([]types.Notification, 0, len(users))
		errs = make([]error, 0)
	)
	g.SetLimit(broadcastConcurrency)
	for _, u := range users {
		userID := u.Id
		g.Go(func() error {
			n, err := r.SendNotification(ctx, userID, title, body)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("notify %s: %w", userID, err))
				return nil
			}
			sent = append(sent, n)
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) > 0 {
		r.logger.Warn("global notification partially failed", "failed", len(errs), "sent", len(sent))
	}
	return sent, errors.Join(errs...)
}

func (r *Repository) decodeNotifications(value any) ([]types.Notification, error) {
	ns := decodeList[types.Notification](value, r.logger)
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].CreatedAt != ns[j].CreatedAt {
			return ns[i].CreatedAt > ns[j].CreatedAt
		}
		return ns[i].Id > ns[j].Id
	})
	return ns, nil
}

// GetNotifications returns the notifications of a user, newest first.
func (r *Repository) GetNotifications(ctx context.Context, userID string) ([]types.Notification, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	value, err := r.store.Read(ctx, notificationsPath(userID))
	if err != nil {
		return nil, err
	}
	return r.decodeNotifications(value)
}

func (r *Repository) DeleteNotification(ctx context.Context, userID, id string) error {
	if err := requireIDs(userID, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, join(notificationsPath(userID), id))
}

func (r *Repository) SubscribeNotifications(ctx context.Context, userID string, fn func([]types.Notification)) (persistence.Unsubscribe, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	return subscribe(ctx, r, notificationsPath(userID), r.decodeNotifications, fn)
}
