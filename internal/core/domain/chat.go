package domain

import "time"

type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageVideo   MessageType = "video"
	MessageSticker MessageType = "sticker"
)

// ChatMessage is immutable once created
type ChatMessage struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"ts"`
	Author    string      `json:"author"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
}

// SendRequest is what a client asks to publish
type SendRequest struct {
	Type   string `json:"type"`
	Author string `json:"author"`
	Text   string `json:"text,omitempty"`
	URL    string `json:"url,omitempty"`
}
