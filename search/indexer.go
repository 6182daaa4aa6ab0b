package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Operations performed by the Indexer.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

type job struct {
	op  string
	doc Document
	id  int64
}

// IndexerConfig sizes the Indexer.
type IndexerConfig struct {
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
}

// DefaultIndexerConfig returns the defaults used when fields are zero.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{QueueSize: 1024, Workers: 2, JobTimeout: 5 * time.Second}
}

// IndexerHooks receives failure notifications, e.g. for metrics.
type IndexerHooks struct {
	OnFailure func(op string)
	OnDropped func(op string)
}

// Indexer applies index updates in the background so that writers never
// wait on the index. Jobs are applied in arrival order per worker; with more
// than one worker two updates for the same document may race, which is
// acceptable because every upsert carries a full document.
type Indexer struct {
	index  Index
	cfg    IndexerConfig
	hooks  IndexerHooks
	logger *zap.Logger

	jobs   chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	start  sync.Once
	cancel context.CancelFunc
}

// NewIndexer builds an Indexer over index. Call Start before enqueuing.
func NewIndexer(index Index, cfg IndexerConfig, logger *zap.Logger, hooks IndexerHooks) *Indexer {
	def := DefaultIndexerConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Indexer{
		index:  index,
		cfg:    cfg,
		hooks:  hooks,
		logger: logger,
		jobs:   make(chan job, cfg.QueueSize),
	}
}

// Start launches the workers. Cancelling ctx aborts in-flight jobs; use
// Close for an orderly drain.
func (i *Indexer) Start(ctx context.Context) {
	i.start.Do(func() {
		ctx, i.cancel = context.WithCancel(ctx)
		for w := 0; w < i.cfg.Workers; w++ {
			i.wg.Add(1)
			go i.run(ctx)
		}
	})
}

// Upsert schedules doc for indexing. It never blocks.
func (i *Indexer) Upsert(doc Document) {
	i.enqueue(job{op: OpUpsert, doc: doc, id: doc.ID})
}

// Delete schedules removal of id. It never blocks.
func (i *Indexer) Delete(id int64) {
	i.enqueue(job{op: OpDelete, id: id})
}

func (i *Indexer) enqueue(j job) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		i.drop(j, "indexer closed")
		return
	}

	select {
	case i.jobs <- j:
	default:
		i.drop(j, "queue full")
	}
}

func (i *Indexer) drop(j job, reason string) {
	i.logger.Warn("dropping index job", zap.String("op", j.op), zap.Int64("id", j.id), zap.String("reason", reason))
	if i.hooks.OnDropped != nil {
		i.hooks.OnDropped(j.op)
	}
}

// Close stops accepting jobs, waits for queued jobs to finish and stops the
// workers. It is safe to call more than once.
func (i *Indexer) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	close(i.jobs)
	i.mu.Unlock()

	i.wg.Wait()
	if i.cancel != nil {
		i.cancel()
	}
}

func (i *Indexer) run(ctx context.Context) {
	defer i.wg.Done()
	for j := range i.jobs {
		i.apply(ctx, j)
	}
}

func (i *Indexer) apply(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.JobTimeout)
	defer cancel()

	var err error
	switch j.op {
	case OpUpsert:
		err = i.index.Upsert(ctx, j.doc)
	case OpDelete:
		err = i.index.Delete(ctx, j.id)
	}
	if err == nil {
		return
	}

	i.logger.Warn("index update failed", zap.String("op", j.op), zap.Int64("id", j.id), zap.Error(err))
	if i.hooks.OnFailure != nil {
		i.hooks.OnFailure(j.op)
	}
}
