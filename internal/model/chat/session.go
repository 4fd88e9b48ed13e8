package chat

import "time"

// Session is a persisted conversation. The title is derived from the first
// user message on creation and never changes afterwards.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
