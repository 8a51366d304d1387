// Package transcript records conversation turns in a Merkle DAG so each
// session's history can be inspected and verified after the fact.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/merkle"
)

// Recorder appends messages to a session's chain of nodes.
type Recorder struct {
	storer merkle.Storer
	logger *zap.Logger
}

// NewRecorder creates a Recorder backed by storer.
func NewRecorder(storer merkle.Storer, logger *zap.Logger) *Recorder {
	return &Recorder{storer: storer, logger: logger}
}

// Record stores the turn's messages as a chain below head (empty for a new
// session) and returns the hash of the last node. Recording the same turn
// below the same head is a no-op that yields the same hash.
func (r *Recorder) Record(ctx context.Context, head string, turn llm.ConversationTurn) (string, error) {
	for i, msg := range turn.Messages {
		if err := msg.Validate(); err != nil {
			return "", fmt.Errorf("message %d: %w", i, err)
		}
	}

	for _, msg := range turn.Messages {
		node := merkle.NewChild(merkle.MessageBucket(turn.SessionID, turn.Model, msg), head)
		if err := r.storer.Put(ctx, node); err != nil {
			return "", fmt.Errorf("storing message node: %w", err)
		}

		r.logger.Debug("stored message in transcript",
			zap.String("session_id", turn.SessionID),
			zap.String("hash", truncate(node.Hash, 16)),
			zap.String("role", string(msg.Role)),
			zap.String("content_preview", truncate(msg.Content, 50)),
		)

		head = node.Hash
	}
	return head, nil
}

// History is the chain of messages leading up to a node.
type History struct {
	// Messages in chronological order (oldest first, up to and including the head)
	Messages []Entry `json:"messages"`
	HeadHash string  `json:"head_hash"`
	Depth    int     `json:"depth"`
}

// Entry is one message in a History.
type Entry struct {
	Hash       string      `json:"hash"`
	ParentHash *string     `json:"parent_hash,omitempty"`
	SessionID  string      `json:"session_id"`
	Model      string      `json:"model,omitempty"`
	Message    llm.Message `json:"message"`
}

// History returns the chain ending at head.
func (r *Recorder) History(ctx context.Context, head string) (*History, error) {
	// Ancestry is newest first.
	ancestry, err := r.storer.Ancestry(ctx, head)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(ancestry))
	for i, node := range ancestry {
		entries[len(ancestry)-1-i] = Entry{
			Hash:       node.Hash,
			ParentHash: node.ParentHash,
			SessionID:  node.Bucket.SessionID,
			Model:      node.Bucket.Model,
			Message:    node.Bucket.Message(),
		}
	}

	return &History{
		Messages: entries,
		HeadHash: head,
		Depth:    len(entries),
	}, nil
}

// Stats summarizes the DAG.
type Stats struct {
	TotalNodes int `json:"total_nodes"`
	RootCount  int `json:"root_count"`
	LeafCount  int `json:"leaf_count"`
}

// Stats counts nodes, roots and leaves.
func (r *Recorder) Stats(ctx context.Context) (Stats, error) {
	nodes, err := r.storer.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list nodes: %w", err)
	}
	roots, err := r.storer.Roots(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list roots: %w", err)
	}
	leaves, err := r.storer.Leaves(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list leaves: %w", err)
	}
	return Stats{TotalNodes: len(nodes), RootCount: len(roots), LeafCount: len(leaves)}, nil
}

// Nodes lists every stored node in insertion order.
func (r *Recorder) Nodes(ctx context.Context) ([]*merkle.Node, error) {
	return r.storer.List(ctx)
}

// Import stores a node built elsewhere after checking its hash. isNew is
// false when the node was already present.
func (r *Recorder) Import(ctx context.Context, node *merkle.Node) (isNew bool, err error) {
	if node == nil {
		return false, errors.New("cannot import nil node")
	}
	if err := node.Verify(); err != nil {
		return false, err
	}
	if err := node.Bucket.Message().Validate(); err != nil {
		return false, fmt.Errorf("node %s: %w", node.Hash, err)
	}
	exists, err := r.storer.Has(ctx, node.Hash)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := r.storer.Put(ctx, node); err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the underlying storer.
func (r *Recorder) Close() error {
	return r.storer.Close()
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
