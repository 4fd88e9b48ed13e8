// Package prompt defines the transient message shape sent to the upstream
// completion API. Nothing here is persisted.
package prompt

// Roles understood by the upstream completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single {role, content} pair in the upstream payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
