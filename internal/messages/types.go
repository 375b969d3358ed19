package messages

import "time"

// Message is a durable, append-only channel message.
type Message struct {
	ID                string    `json:"id"`
	Content           string    `json:"content"`
	SenderID          string    `json:"senderId"`
	SenderDisplayName string    `json:"senderDisplayName"`
	ChannelID         string    `json:"channelId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Page is one window of a channel's history. Messages are ascending by
// (createdAt, id) for display; HasMore reports whether later pages exist.
type Page struct {
	Messages []Message `json:"messages"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int       `json:"total"`
	Pages    int       `json:"pages"`
	HasMore  bool      `json:"hasMore"`
}
