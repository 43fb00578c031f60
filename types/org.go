package types

// Organization groups users; a user belongs to at most one organization at a time.
type Organization struct {
	Id        string      `json:"id"`
	Name      string      `json:"name"`
	Members   PresenceSet `json:"members"`
	ChannelId string      `json:"channelId,omitempty"`
}
