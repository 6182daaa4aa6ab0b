package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-accounts/model"
)

// mockIndex records the operations applied to it.
type mockIndex struct {
	mu        sync.Mutex
	calls     []string
	docs      map[int64]Document
	upsertErr error
	block     chan struct{}
}

func newMockIndex() *mockIndex {
	return &mockIndex{docs: make(map[int64]Document)}
}

func (m *mockIndex) Upsert(ctx context.Context, doc Document) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Upsert")
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockIndex) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Delete")
	delete(m.docs, id)
	return nil
}

func (m *mockIndex) FuzzySearch(ctx context.Context, term string, page, size int) (model.Page[Document], error) {
	return model.EmptyPage[Document](page, size), nil
}

func (m *mockIndex) Close(ctx context.Context) error { return nil }

func (m *mockIndex) snapshot() (map[int64]Document, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make(map[int64]Document, len(m.docs))
	for k, v := range m.docs {
		docs[k] = v
	}
	return docs, append([]string(nil), m.calls...)
}

func TestIndexer_AppliesJobsAndDrainsOnClose(t *testing.T) {
	idx := newMockIndex()
	ix := NewIndexer(idx, IndexerConfig{Workers: 1}, zap.NewNop(), IndexerHooks{})
	ix.Start(context.Background())

	ix.Upsert(Document{ID: 1, Name: "John Doe"})
	ix.Upsert(Document{ID: 2, Name: "Jane Smith"})
	ix.Delete(1)
	ix.Close()

	docs, calls := idx.snapshot()
	if len(calls) != 3 {
		t.Fatalf("calls = %v", calls)
	}
	if _, ok := docs[1]; ok {
		t.Error("document 1 should be deleted")
	}
	if docs[2].Name != "Jane Smith" {
		t.Errorf("document 2 = %+v", docs[2])
	}
}

func TestIndexer_FailuresAreLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	idx := newMockIndex()
	idx.upsertErr = errors.New("index unreachable")

	var failures atomic.Int32
	ix := NewIndexer(idx, IndexerConfig{Workers: 1}, zap.New(core), IndexerHooks{
		OnFailure: func(op string) {
			if op == OpUpsert {
				failures.Add(1)
			}
		},
	})
	ix.Start(context.Background())
	ix.Upsert(Document{ID: 1})
	ix.Close()

	if failures.Load() != 1 {
		t.Errorf("failures = %d, want 1", failures.Load())
	}
	if logs.FilterMessage("index update failed").Len() != 1 {
		t.Errorf("expected one failure log, got %d", logs.Len())
	}
}

func TestIndexer_EnqueueNeverBlocks(t *testing.T) {
	idx := newMockIndex()
	idx.block = make(chan struct{})

	var dropped atomic.Int32
	ix := NewIndexer(idx, IndexerConfig{QueueSize: 1, Workers: 1}, zap.NewNop(), IndexerHooks{
		OnDropped: func(op string) { dropped.Add(1) },
	})
	ix.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 10; i++ {
			ix.Upsert(Document{ID: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	close(idx.block)
	ix.Close()

	if dropped.Load() == 0 {
		t.Error("expected some jobs to be dropped")
	}
}

func TestIndexer_EnqueueAfterCloseIsDropped(t *testing.T) {
	idx := newMockIndex()
	var dropped atomic.Int32
	ix := NewIndexer(idx, IndexerConfig{}, zap.NewNop(), IndexerHooks{
		OnDropped: func(op string) { dropped.Add(1) },
	})
	ix.Start(context.Background())
	ix.Close()
	ix.Close()

	ix.Delete(1)
	if dropped.Load() != 1 {
		t.Errorf("dropped = %d, want 1", dropped.Load())
	}
}

func TestDisabled(t *testing.T) {
	var idx Index = Disabled{}
	ctx := context.Background()

	if err := idx.Upsert(ctx, Document{ID: 1}); err != nil {
		t.Errorf("Upsert: %v", err)
	}
	if _, err := idx.FuzzySearch(ctx, "john", 0, 5); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestDocumentFromSnapshot(t *testing.T) {
	doc := DocumentFromSnapshot(model.Snapshot{ID: 3, Name: "Tony Stark", Email: "tony.stark@example.com", DepartmentName: "Engineering", Username: "tony.stark"})
	want := Document{ID: 3, Name: "Tony Stark", Email: "tony.stark@example.com", DepartmentName: "Engineering"}
	if doc != want {
		t.Errorf("got %+v", doc)
	}
}
