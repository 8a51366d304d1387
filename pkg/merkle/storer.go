package merkle

import "context"

// Storer persists transcript nodes. Identical content under an identical
// parent hashes identically, so storing a node twice is a no-op.
type Storer interface {
	Put(ctx context.Context, node *Node) error

	// Get returns ErrNotFound for an unknown hash.
	Get(ctx context.Context, hash string) (*Node, error)
	Has(ctx context.Context, hash string) (bool, error)

	// List, Roots and Leaves return nodes in insertion order.
	List(ctx context.Context) ([]*Node, error)
	Roots(ctx context.Context) ([]*Node, error)
	Leaves(ctx context.Context) ([]*Node, error)

	// Ancestry walks from hash up to its root, newest first.
	Ancestry(ctx context.Context, hash string) ([]*Node, error)

	Close() error
}

// ErrNotFound reports a hash the store does not hold.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "transcript node not found"
	}
	return "transcript node not found: " + e.Hash
}

// ancestry walks parent links using get.
func ancestry(ctx context.Context, get func(context.Context, string) (*Node, error), hash string) ([]*Node, error) {
	var path []*Node
	for next := hash; ; {
		node, err := get(ctx, next)
		if err != nil {
			return nil, err
		}
		path = append(path, node)
		if node.ParentHash == nil {
			return path, nil
		}
		next = *node.ParentHash
	}
}
