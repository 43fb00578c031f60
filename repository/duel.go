package repository

import (
	"context"
	"errors"
	"fmt"
)

const duelTitle = "ANUNCIO DE DUELO"

// AnnounceDuel posts a duel challenge into the dm of both players and broadcasts it to everyone.
func (r *Repository) AnnounceDuel(ctx context.Context, fromUserID, toUserID string) error {
	nameA, err := r.displayName(ctx, fromUserID)
	if err != nil {
		return err
	}
	nameB, err := r.displayName(ctx, toUserID)
	if err != nil {
		return err
	}
	dm, err := r.EnsureDMChannel(ctx, fromUserID, toUserID)
	if err != nil {
		return err
	}
	challenge := fmt.Sprintf("%s Desafia %s", nameA, nameB)
	if _, err := r.SendMessage(ctx, dm.Id, fromUserID, duelTitle+"\n\n"+challenge); err != nil {
		return err
	}
	_, err = r.SendGlobalNotification(ctx, duelTitle, challenge)
	return err
}

// displayName falls back to the id for unknown users or users without a name.
func (r *Repository) displayName(ctx context.Context, id string) (string, error) {
	user, err := r.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return id, nil
	}
	if err != nil {
		return "", err
	}
	if user.Name == "" {
		return id, nil
	}
	return user.Name, nil
}
