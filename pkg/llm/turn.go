package llm

// ConversationTurn is the set of messages one user turn added to a session,
// in the order they were produced.
type ConversationTurn struct {
	SessionID string    `json:"session_id"`
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
}
