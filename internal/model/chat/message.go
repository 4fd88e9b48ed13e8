package chat

import "time"

// Sender values for Message.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one turn of a session. Messages are immutable once written and
// are replayed in CreatedAt order when rebuilding the prompt for the next turn.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
