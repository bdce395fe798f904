// Package pagination implements cursor-based pagination over a mutable,
// time-ordered collection. Pages are resumable: the cursor marks a position
// in the descending record-key order, not a record, so pagination keeps
// making forward progress even when the record behind a cursor is deleted.
package pagination

import (
	"context"
	"fmt"

	"github.com/tutorstack/gradebook/internal/cursor"
	"github.com/tutorstack/gradebook/internal/model"
)

// DefaultLimit is the page size used when the caller does not supply one.
const DefaultLimit = 100

// Node is any record with a totally-ordered internal key.
type Node interface {
	Key() string
}

// Source yields records strictly after the given key in descending
// key order. An empty afterKey means start from the newest record.
type Source[T Node] interface {
	FindAfter(ctx context.Context, afterKey string, limit int) ([]T, error)
}

// Edge wraps a single record in a page.
type Edge[T Node] struct {
	Node T `json:"node"`
}

// PageInfo carries next-page metadata for a page.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor,omitempty"`
}

// Connection is one page of records plus its page metadata.
type Connection[T Node] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Paginate returns one page of up to limit records from src, resuming
// after cur when it is non-empty. It fetches limit+1 records to detect a
// next page without a second round trip. A limit <= 0 means DefaultLimit.
func Paginate[T Node](ctx context.Context, src Source[T], cur string, limit int) (*Connection[T], error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var afterKey string
	if cur != "" {
		key, err := cursor.Decode(cur)
		if err != nil {
			return nil, err
		}
		afterKey = key
	}

	items, err := src.FindAfter(ctx, afterKey, limit+1)
	if err != nil {
		return nil, fmt.Errorf("find after %q: %w: %v", afterKey, model.ErrStoreUnavailable, err)
	}

	hasNext := len(items) > limit
	if hasNext {
		items = items[:limit]
	}

	conn := &Connection[T]{
		Edges:    make([]Edge[T], 0, len(items)),
		PageInfo: PageInfo{HasNextPage: hasNext},
	}
	for _, item := range items {
		conn.Edges = append(conn.Edges, Edge[T]{Node: item})
	}
	if len(items) > 0 {
		conn.PageInfo.EndCursor = cursor.Encode(items[len(items)-1].Key())
	}
	return conn, nil
}
