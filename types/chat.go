package types

type ChannelType string

const (
	ChannelDM    ChannelType = "dm"
	ChannelGroup ChannelType = "group"
)

type Channel struct {
	Id      string      `json:"id"`
	Type    ChannelType `json:"type"`
	Name    string      `json:"name"`
	Members PresenceSet `json:"members"`
}

// IsDMBetween reports whether c is a dm channel whose members are exactly a and b.
func (c Channel) IsDMBetween(a, b string) bool {
	return c.Type == ChannelDM && c.Members.Equal(NewPresenceSet(a, b))
}

// Message is append-only; CreatedAt is milliseconds since the epoch.
type Message struct {
	Id        string `json:"id"`
	ChannelId string `json:"channelId"`
	AuthorId  string `json:"authorId"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"createdAt"`
}
