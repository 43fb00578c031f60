package types

type Post struct {
	Id        string      `json:"id"`
	AuthorId  string      `json:"authorId"` // user or npc
	Body      string      `json:"body"`
	CreatedAt int64       `json:"createdAt"`
	Likes     PresenceSet `json:"likes,omitempty"`
}

// PostUpdate is a partial post edit.
type PostUpdate struct {
	Body     *string `json:"body,omitempty"`
	AuthorId *string `json:"authorId,omitempty"`
}

type Notification struct {
	Id        string `json:"id"`
	UserId    string `json:"userId"` // recipient
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"createdAt"`
}
