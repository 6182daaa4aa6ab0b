package searchinfra

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/search"
)

// MongoConfig points the index at a collection.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	// CandidateLimit caps how many trigram matches are pulled back for
	// ranking on each query.
	CandidateLimit int64
}

// mongoDocument is the stored shape: the document plus its trigrams.
type mongoDocument struct {
	ID             int64    `bson:"_id"`
	Name           string   `bson:"name"`
	Email          string   `bson:"email"`
	DepartmentName string   `bson:"department_name"`
	Grams          []string `bson:"grams"`
}

func toMongoDocument(doc search.Document) mongoDocument {
	return mongoDocument{
		ID:             doc.ID,
		Name:           doc.Name,
		Email:          doc.Email,
		DepartmentName: doc.DepartmentName,
		Grams:          search.Trigrams(search.Terms(doc)),
	}
}

func (d mongoDocument) document() search.Document {
	return search.Document{ID: d.ID, Name: d.Name, Email: d.Email, DepartmentName: d.DepartmentName}
}

// MongoIndex stores documents in MongoDB. Each document carries the
// trigrams of its terms; a query fetches candidates sharing at least one
// trigram with the query and ranks them with search.Rank, which keeps typo
// tolerance without a server-side text search engine.
type MongoIndex struct {
	client     *mongo.Client
	collection *mongo.Collection
	limit      int64
	timeout    time.Duration
	ready      atomic.Bool
}

var _ search.Index = (*MongoIndex)(nil)

// DialMongoIndex creates the client without touching the server. The
// driver connects lazily, so an unreachable server surfaces as
// search.Unavailable errors from each operation until it comes back.
func DialMongoIndex(cfg MongoConfig) (*MongoIndex, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo index: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = "accounts"
	}
	if cfg.Collection == "" {
		cfg.Collection = "account_documents"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 1000
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, search.Unavailable(err, "connect")
	}

	return &MongoIndex{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		limit:      cfg.CandidateLimit,
		timeout:    cfg.ConnectTimeout,
	}, nil
}

// NewMongoIndex dials, pings and ensures the trigram index exists. Any
// failure closes the client.
func NewMongoIndex(ctx context.Context, cfg MongoConfig) (*MongoIndex, error) {
	m, err := DialMongoIndex(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.EnsureSchema(ctx); err != nil {
		_ = m.client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// EnsureSchema pings the server and creates the trigram index. It is
// idempotent; Upsert calls it until it has succeeded once.
func (m *MongoIndex) EnsureSchema(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.client.Ping(ctx, nil); err != nil {
		return search.Unavailable(err, "ping")
	}
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "grams", Value: 1}},
	})
	if err != nil {
		return search.Unavailable(err, "create index")
	}

	m.ready.Store(true)
	return nil
}

// Ready reports whether EnsureSchema has succeeded.
func (m *MongoIndex) Ready() bool {
	return m.ready.Load()
}

func (m *MongoIndex) Upsert(ctx context.Context, doc search.Document) error {
	if err := m.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		toMongoDocument(doc),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return search.Unavailable(err, "upsert")
	}
	return nil
}

func (m *MongoIndex) Delete(ctx context.Context, id int64) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return search.Unavailable(err, "delete")
	}
	return nil
}

func (m *MongoIndex) FuzzySearch(ctx context.Context, term string, page, size int) (model.Page[search.Document], error) {
	filter, ok := candidateFilter(term)
	if !ok {
		return model.EmptyPage[search.Document](page, size), nil
	}

	cur, err := m.collection.Find(ctx, filter, options.Find().SetLimit(m.limit))
	if err != nil {
		return model.Page[search.Document]{}, search.Unavailable(err, "find")
	}

	var stored []mongoDocument
	if err := cur.All(ctx, &stored); err != nil {
		return model.Page[search.Document]{}, search.Unavailable(err, "decode")
	}

	docs := make([]search.Document, len(stored))
	for i, d := range stored {
		docs[i] = d.document()
	}
	return search.Rank(docs, term, page, size), nil
}

func (m *MongoIndex) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// candidateFilter selects documents sharing a trigram with the query.
func candidateFilter(term string) (bson.M, bool) {
	grams := search.Trigrams(search.Tokenize(term))
	if len(grams) == 0 {
		return nil, false
	}
	return bson.M{"grams": bson.M{"$in": grams}}, true
}
