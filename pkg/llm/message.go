package llm

import (
	"errors"
	"fmt"
)

// Role is the closed set of conversation roles.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message represents a single message in a conversation.
//
// Which fields are meaningful depends on Role: ToolCalls only on assistant
// messages, ToolCallID and Name only on tool messages. Use the role
// constructors below rather than building the struct by hand.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant reply, optionally requesting tool calls.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage carries the result of the tool call identified by callID.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: content}
}

// WantsTools reports whether the message asks for one or more tool invocations.
func (m Message) WantsTools() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Validate rejects messages whose fields do not belong to their role.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("unknown message role %q", m.Role)
	}
	if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
		return fmt.Errorf("%s message cannot carry tool calls", m.Role)
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return errors.New("tool message without tool_call_id")
	}
	if m.Role != RoleTool && m.ToolCallID != "" {
		return fmt.Errorf("%s message cannot carry tool_call_id", m.Role)
	}
	return nil
}
