package channels

import "time"

// Member is a channel member as exposed by the API (no credentials).
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Channel is a durable named group. Membership here is the recorded
// relationship; it does not gate live-room joins (see the session package).
type Channel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	IsPrivate   bool      `json:"isPrivate"`
	CreatedAt   time.Time `json:"createdAt"`
	Members     []Member  `json:"members"`
}
