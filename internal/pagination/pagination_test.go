package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tutorstack/gradebook/internal/cursor"
	"github.com/tutorstack/gradebook/internal/model"
)

type fakeNode struct {
	key string
}

func (n fakeNode) Key() string { return n.key }

// fakeSource serves nodes in descending key order, like the store does.
type fakeSource struct {
	keys []string // descending
	err  error
}

func (s *fakeSource) FindAfter(_ context.Context, afterKey string, limit int) ([]fakeNode, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []fakeNode
	for _, k := range s.keys {
		if afterKey != "" && k >= afterKey {
			continue
		}
		out = append(out, fakeNode{key: k})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for i := n; i >= 1; i-- {
		s.keys = append(s.keys, fmt.Sprintf("key-%03d", i))
	}
	return s
}

func TestPaginateSinglePages(t *testing.T) {
	src := newFakeSource(5)
	ctx := context.Background()

	// First page of one: newest record, next page available.
	conn, err := Paginate(ctx, src, "", 1)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(conn.Edges) != 1 || conn.Edges[0].Node.Key() != "key-005" {
		t.Fatalf("unexpected first page: %+v", conn.Edges)
	}
	if !conn.PageInfo.HasNextPage {
		t.Error("expected hasNextPage=true")
	}
	if conn.PageInfo.EndCursor == "" {
		t.Fatal("expected endCursor")
	}

	// Resuming after the cursor yields the next record.
	conn, err = Paginate(ctx, src, conn.PageInfo.EndCursor, 1)
	if err != nil {
		t.Fatalf("Paginate after cursor: %v", err)
	}
	if len(conn.Edges) != 1 || conn.Edges[0].Node.Key() != "key-004" {
		t.Fatalf("unexpected second page: %+v", conn.Edges)
	}
	if !conn.PageInfo.HasNextPage {
		t.Error("expected hasNextPage=true on second page")
	}
}

func TestPaginateDefaultLimit(t *testing.T) {
	src := newFakeSource(5)

	// No limit returns everything, newest first, no next page.
	conn, err := Paginate(context.Background(), src, "", 0)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(conn.Edges) != 5 {
		t.Fatalf("expected 5 edges, got %d", len(conn.Edges))
	}
	want := []string{"key-005", "key-004", "key-003", "key-002", "key-001"}
	for i, e := range conn.Edges {
		if e.Node.Key() != want[i] {
			t.Errorf("edge %d: got %q, want %q", i, e.Node.Key(), want[i])
		}
	}
	if conn.PageInfo.HasNextPage {
		t.Error("expected hasNextPage=false")
	}
	if conn.PageInfo.EndCursor == "" {
		t.Error("expected endCursor on final page")
	}
}

// Walking pages sequentially visits every record exactly once, in
// strictly descending key order, for any page size.
func TestPaginateVisitsEveryRecordOnce(t *testing.T) {
	const total = 23
	src := newFakeSource(total)

	for _, limit := range []int{1, 2, 3, 5, 7, 23, 50} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			var visited []string
			cur := ""
			for {
				conn, err := Paginate(context.Background(), src, cur, limit)
				if err != nil {
					t.Fatalf("Paginate: %v", err)
				}
				for _, e := range conn.Edges {
					visited = append(visited, e.Node.Key())
				}
				if !conn.PageInfo.HasNextPage {
					break
				}
				cur = conn.PageInfo.EndCursor
			}
			if len(visited) != total {
				t.Fatalf("visited %d records, want %d", len(visited), total)
			}
			for i := 1; i < len(visited); i++ {
				if visited[i] >= visited[i-1] {
					t.Fatalf("order violated at %d: %q then %q", i, visited[i-1], visited[i])
				}
			}
		})
	}
}

// A cursor pointing at a deleted record is still a valid boundary: the
// page after it contains whatever now follows that position.
func TestPaginateAfterDeletedBoundary(t *testing.T) {
	src := newFakeSource(5)
	conn, err := Paginate(context.Background(), src, "", 2)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	boundary := conn.PageInfo.EndCursor // key-004

	// key-004 disappears between issuance and redemption.
	src.keys = []string{"key-005", "key-003", "key-002", "key-001"}

	conn, err = Paginate(context.Background(), src, boundary, 2)
	if err != nil {
		t.Fatalf("Paginate after delete: %v", err)
	}
	if len(conn.Edges) != 2 || conn.Edges[0].Node.Key() != "key-003" || conn.Edges[1].Node.Key() != "key-002" {
		t.Fatalf("unexpected page after deleted boundary: %+v", conn.Edges)
	}
}

func TestPaginateInvalidCursor(t *testing.T) {
	src := newFakeSource(3)
	_, err := Paginate(context.Background(), src, "not-a-cursor!!!", 1)
	if !errors.Is(err, model.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestPaginateStoreFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	_, err := Paginate(context.Background(), src, "", 1)
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestPaginateEmptyCollection(t *testing.T) {
	src := &fakeSource{}
	conn, err := Paginate(context.Background(), src, "", 10)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(conn.Edges) != 0 {
		t.Errorf("expected no edges, got %d", len(conn.Edges))
	}
	if conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor != "" {
		t.Errorf("unexpected page info: %+v", conn.PageInfo)
	}
}

func TestEndCursorMatchesLastEdge(t *testing.T) {
	src := newFakeSource(5)
	conn, err := Paginate(context.Background(), src, "", 3)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	key, err := cursor.Decode(conn.PageInfo.EndCursor)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	last := conn.Edges[len(conn.Edges)-1].Node.Key()
	if key != last {
		t.Errorf("endCursor decodes to %q, last edge is %q", key, last)
	}
}
