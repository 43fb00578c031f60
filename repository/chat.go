package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

func (r *Repository) CreateChannel(ctx context.Context, channel types.Channel) (types.Channel, error) {
	if channel.Type != types.ChannelDM && channel.Type != types.ChannelGroup {
		return types.Channel{}, invalidArgument("unknown channel type %q", channel.Type)
	}
	for id := range channel.Members {
		if err := requireIDs(id); err != nil {
			return types.Channel{}, err
		}
	}
	channel.Id = r.newID()
	if channel.Members == nil {
		channel.Members = types.NewPresenceSet()
	}
	if err := r.store.Write(ctx, channelPath(channel.Id), channel); err != nil {
		return types.Channel{}, err
	}
	return channel, nil
}

func (r *Repository) decodeChannels(value any) []types.Channel {
	channels := decodeList[types.Channel](value, r.logger)
	for i := range channels {
		if channels[i].Members == nil {
			channels[i].Members = types.NewPresenceSet()
		}
	}
	return channels
}

func (r *Repository) ListAllChannels(ctx context.Context) ([]types.Channel, error) {
	value, err := r.store.Read(ctx, channelsRoot)
	if err != nil {
		return nil, err
	}
	channels := r.decodeChannels(value)
	sort.SliceStable(channels, func(i, j int) bool {
		if channels[i].Name != channels[j].Name {
			return channels[i].Name < channels[j].Name
		}
		return channels[i].Id < channels[j].Id
	})
	return channels, nil
}

func (r *Repository) getChannel(ctx context.Context, id string) (types.Channel, error) {
	value, err := r.store.Read(ctx, channelPath(id))
	if err != nil {
		return types.Channel{}, err
	}
	if value == nil {
		return types.Channel{}, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	var channel types.Channel
	if err := decode(value, &channel); err != nil {
		return types.Channel{}, err
	}
	if channel.Members == nil {
		channel.Members = types.NewPresenceSet()
	}
	return channel, nil
}

// EnsureDMChannel returns the dm channel whose members are exactly a and b, creating it if there is none.
// Lookup and creation are separate steps; two concurrent callers can both create a channel.
func (r *Repository) EnsureDMChannel(ctx context.Context, a, b string) (types.Channel, error) {
	if err := requireIDs(a, b); err != nil {
		return types.Channel{}, err
	}
	if a == b {
		return types.Channel{}, invalidArgument("a dm needs two different users")
	}
	channels, err := r.ListAllChannels(ctx)
	if err != nil {
		return types.Channel{}, err
	}
	for _, c := range channels {
		if c.IsDMBetween(a, b) {
			return c, nil
		}
	}
	return r.CreateChannel(ctx, types.Channel{
		Type:    types.ChannelDM,
		Name:    fmt.Sprintf("DM %s-%s", prefix(a, 4), prefix(b, 4)),
		Members: types.NewPresenceSet(a, b),
	})
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (r *Repository) SendMessage(ctx context.Context, channelID, authorID, body string) (types.Message, error) {
	if err := requireIDs(channelID, authorID); err != nil {
		return types.Message{}, err
	}
	msg := types.Message{
		Id:        r.newID(),
		ChannelId: channelID,
		AuthorId:  authorID,
		Body:      body,
		CreatedAt: r.timestamp(),
	}
	if err := r.store.Write(ctx, join(messagesPath(channelID), msg.Id), msg); err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

func (r *Repository) decodeMessages(value any) ([]types.Message, error) {
	messages := decodeList[types.Message](value, r.logger)
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt != messages[j].CreatedAt {
			return messages[i].CreatedAt < messages[j].CreatedAt
		}
		return messages[i].Id < messages[j].Id
	})
	return messages, nil
}

// GetMessagesOnce returns the messages of a channel, oldest first.
func (r *Repository) GetMessagesOnce(ctx context.Context, channelID string) ([]types.Message, error) {
	if err := requireIDs(channelID); err != nil {
		return nil, err
	}
	value, err := r.store.Read(ctx, messagesPath(channelID))
	if err != nil {
		return nil, err
	}
	return r.decodeMessages(value)
}

// SubscribeMessages delivers the full message list of a channel, oldest first, on every change.
func (r *Repository) SubscribeMessages(ctx context.Context, channelID string, fn func([]types.Message)) (persistence.Unsubscribe, error) {
	if err := requireIDs(channelID); err != nil {
		return nil, err
	}
	return subscribe(ctx, r, messagesPath(channelID), r.decodeMessages, fn)
}
