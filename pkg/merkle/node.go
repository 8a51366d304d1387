// Package merkle is an implementation of a Merkle DAG used to record
// conversation transcripts. Every message is a node whose hash covers its
// content and its parent, so a session's head hash pins its whole history.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/tabula/pkg/llm"
)

// Bucket is the hashable content of a transcript node: one message of one
// session.
type Bucket struct {
	Type       string         `json:"type"` // always "message" today
	SessionID  string         `json:"session_id"`
	Role       llm.Role       `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Model      string         `json:"model,omitempty"`
}

// MessageBucket wraps msg for storage.
func MessageBucket(sessionID, model string, msg llm.Message) Bucket {
	return Bucket{
		Type:       "message",
		SessionID:  sessionID,
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCalls:  msg.ToolCalls,
		ToolCallID: msg.ToolCallID,
		Name:       msg.Name,
		Model:      model,
	}
}

// Message converts the bucket back to a conversation message.
func (b Bucket) Message() llm.Message {
	return llm.Message{
		Role:       b.Role,
		Content:    b.Content,
		ToolCalls:  b.ToolCalls,
		ToolCallID: b.ToolCallID,
		Name:       b.Name,
	}
}

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Bucket Bucket `json:"bucket"`
}

type hashInput struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

// NewNode creates a new node with the computed hash for the provided content
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{Bucket: bucket}
	if parent != nil {
		h := parent.Hash
		n.ParentHash = &h
	}
	n.Hash = n.computeHash()
	return n
}

// NewChild creates a node under the node identified by parentHash; an empty
// parentHash creates a root.
func NewChild(bucket Bucket, parentHash string) *Node {
	n := &Node{Bucket: bucket}
	if parentHash != "" {
		n.ParentHash = &parentHash
	}
	n.Hash = n.computeHash()
	return n
}

func (n *Node) computeHash() string {
	in := hashInput{Bucket: n.Bucket}
	if n.ParentHash != nil {
		in.Parent = *n.ParentHash
	}

	// Struct field order makes this encoding deterministic.
	data, err := json.Marshal(in)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify checks that the node's hash matches its content and parent.
func (n *Node) Verify() error {
	if want := n.computeHash(); n.Hash != want {
		return fmt.Errorf("node %s: hash mismatch, content hashes to %s", n.Hash, want)
	}
	return nil
}
