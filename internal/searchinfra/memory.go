package searchinfra

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/search"
)

// MemoryIndex keeps documents in a concurrent map and ranks them with
// search.Rank on every query. It suits single-process deployments and tests.
type MemoryIndex struct {
	docs *xsync.MapOf[int64, search.Document]
}

var _ search.Index = (*MemoryIndex)(nil)

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: xsync.NewMapOf[int64, search.Document]()}
}

func (m *MemoryIndex) Upsert(ctx context.Context, doc search.Document) error {
	if err := ctx.Err(); err != nil {
		return search.Unavailable(err, "upsert")
	}
	m.docs.Store(doc.ID, doc)
	return nil
}

func (m *MemoryIndex) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return search.Unavailable(err, "delete")
	}
	m.docs.Delete(id)
	return nil
}

func (m *MemoryIndex) FuzzySearch(ctx context.Context, term string, page, size int) (model.Page[search.Document], error) {
	if err := ctx.Err(); err != nil {
		return model.Page[search.Document]{}, search.Unavailable(err, "search")
	}

	docs := make([]search.Document, 0, m.docs.Size())
	m.docs.Range(func(_ int64, doc search.Document) bool {
		docs = append(docs, doc)
		return true
	})
	return search.Rank(docs, term, page, size), nil
}

// Len returns the number of indexed documents.
func (m *MemoryIndex) Len() int {
	return m.docs.Size()
}

func (m *MemoryIndex) Close(ctx context.Context) error {
	m.docs.Clear()
	return nil
}
