package types

// FriendRequest is stored under the recipient's inbox and mirrored under the sender's sent index.
type FriendRequest struct {
	Id        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"createdAt"`
}
