package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

const defaultFriendRequestBody = "Você recebeu uma solicitação de amizade."

// SendFriendRequest stores a pending request in the recipient's inbox and in the sender's sent index, then
// notifies the recipient.
func (r *Repository) SendFriendRequest(ctx context.Context, from, to, body string) (types.FriendRequest, error) {
	if err := requireIDs(from, to); err != nil {
		return types.FriendRequest{}, err
	}
	if from == to {
		return types.FriendRequest{}, invalidArgument("cannot send a friend request to oneself")
	}
	req := types.FriendRequest{Id: r.newID(), From: from, To: to, Body: body, CreatedAt: r.timestamp()}
	if err := r.store.Write(ctx, join(inboxPath(to), req.Id), req); err != nil {
		return types.FriendRequest{}, err
	}
	if err := r.store.Write(ctx, join(sentPath(from), req.Id), req); err != nil {
		return types.FriendRequest{}, err
	}
	notice := body
	if notice == "" {
		notice = defaultFriendRequestBody
	}
	if _, err := r.SendNotification(ctx, to, "Pedido de amizade", notice); err != nil {
		return types.FriendRequest{}, err
	}
	return req, nil
}

func (r *Repository) decodeRequests(value any) ([]types.FriendRequest, error) {
	reqs := decodeList[types.FriendRequest](value, r.logger)
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt != reqs[j].CreatedAt {
			return reqs[i].CreatedAt > reqs[j].CreatedAt
		}
		return reqs[i].Id > reqs[j].Id
	})
	return reqs, nil
}

// ListFriendRequests returns the pending requests sent to userID, newest first.
func (r *Repository) ListFriendRequests(ctx context.Context, userID string) ([]types.FriendRequest, error) {
	return r.listRequests(ctx, inboxPath, userID)
}

// ListSentFriendRequests returns the pending requests userID sent, newest first.
func (r *Repository) ListSentFriendRequests(ctx context.Context, userID string) ([]types.FriendRequest, error) {
	return r.listRequests(ctx, sentPath, userID)
}

func (r *Repository) listRequests(ctx context.Context, path func(string) string, userID string) ([]types.FriendRequest, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	value, err := r.store.Read(ctx, path(userID))
	if err != nil {
		return nil, err
	}
	return r.decodeRequests(value)
}

func (r *Repository) SubscribeFriendRequests(ctx context.Context, userID string, fn func([]types.FriendRequest)) (persistence.Unsubscribe, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	return subscribe(ctx, r, inboxPath(userID), r.decodeRequests, fn)
}

func (r *Repository) pendingRequest(ctx context.Context, recipientID, requestID string) (types.FriendRequest, error) {
	if err := requireIDs(recipientID, requestID); err != nil {
		return types.FriendRequest{}, err
	}
	value, err := r.store.Read(ctx, join(inboxPath(recipientID), requestID))
	if err != nil {
		return types.FriendRequest{}, err
	}
	if value == nil {
		return types.FriendRequest{}, fmt.Errorf("friend request %s: %w", requestID, ErrNotFound)
	}
	var req types.FriendRequest
	if err := decode(value, &req); err != nil {
		return types.FriendRequest{}, err
	}
	if req.Id == "" {
		req.Id = requestID
	}
	if req.To == "" {
		req.To = recipientID
	}
	return req, nil
}

func (r *Repository) removeRequest(ctx context.Context, req types.FriendRequest) error {
	if err := r.store.Delete(ctx, join(inboxPath(req.To), req.Id)); err != nil {
		return err
	}
	if req.From == "" {
		return nil
	}
	return r.store.Delete(ctx, join(sentPath(req.From), req.Id))
}

// AcceptFriendRequest turns a pending request of userID's inbox into a friendship in both directions, makes
// sure both have a dm channel, removes the request and notifies both users.
func (r *Repository) AcceptFriendRequest(ctx context.Context, userID, requestID string) error {
	req, err := r.pendingRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}
	if err := requireIDs(req.From); err != nil {
		return err
	}
	if err := r.store.Write(ctx, join(friendsPath(req.From), req.To), true); err != nil {
		return err
	}
	if err := r.store.Write(ctx, join(friendsPath(req.To), req.From), true); err != nil {
		return err
	}
	if _, err := r.EnsureDMChannel(ctx, req.From, req.To); err != nil {
		return err
	}
	if err := r.removeRequest(ctx, req); err != nil {
		return err
	}
	if _, err := r.SendNotification(ctx, req.From, "Amizade aceita", "Sua solicitação foi aceita."); err != nil {
		return err
	}
	_, err = r.SendNotification(ctx, req.To, "Amizade criada", "Vocês agora são amigos!")
	return err
}

// RejectFriendRequest removes a pending request of userID's inbox and tells the sender.
func (r *Repository) RejectFriendRequest(ctx context.Context, userID, requestID string) error {
	req, err := r.pendingRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}
	if err := r.removeRequest(ctx, req); err != nil {
		return err
	}
	if req.From == "" {
		return nil
	}
	_, err = r.SendNotification(ctx, req.From, "Amizade recusada", "Sua solicitação foi recusada.")
	return err
}

// CancelFriendRequest withdraws a request senderID sent to toUserID. Only the sender may cancel.
func (r *Repository) CancelFriendRequest(ctx context.Context, senderID, toUserID, requestID string) error {
	if err := requireIDs(senderID); err != nil {
		return err
	}
	req, err := r.pendingRequest(ctx, toUserID, requestID)
	if err != nil {
		return err
	}
	if req.From != senderID {
		return fmt.Errorf("cancel %s: %w", requestID, ErrNotRequestSender)
	}
	return r.removeRequest(ctx, req)
}

// ListFriends returns the ids of userID's friends in lexical order.
func (r *Repository) ListFriends(ctx context.Context, userID string) ([]string, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	value, err := r.store.Read(ctx, friendsPath(userID))
	if err != nil {
		return nil, err
	}
	friends := presenceKeys(value)
	sort.Strings(friends)
	return friends, nil
}

func (r *Repository) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if err := requireIDs(a, b); err != nil {
		return false, err
	}
	value, err := r.store.Read(ctx, join(friendsPath(a), b))
	if err != nil {
		return false, err
	}
	return truthy(value), nil
}
