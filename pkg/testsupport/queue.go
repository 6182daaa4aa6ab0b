package testsupport

import (
	"sync"

	"github.com/goliatone/go-accounts/search"
)

// RecordingQueue collects index updates instead of applying them.
type RecordingQueue struct {
	mu      sync.Mutex
	Upserts []search.Document
	Deletes []int64
}

func (q *RecordingQueue) Upsert(doc search.Document) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Upserts = append(q.Upserts, doc)
}

func (q *RecordingQueue) Delete(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Deletes = append(q.Deletes, id)
}

// UpsertedIDs returns the IDs of every upsert in arrival order.
func (q *RecordingQueue) UpsertedIDs() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]int64, len(q.Upserts))
	for i, d := range q.Upserts {
		ids[i] = d.ID
	}
	return ids
}

// DeletedIDs returns a copy of the deleted IDs.
func (q *RecordingQueue) DeletedIDs() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int64(nil), q.Deletes...)
}

// Reset forgets everything recorded so far.
func (q *RecordingQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Upserts = nil
	q.Deletes = nil
}
