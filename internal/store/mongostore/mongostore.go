// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/web/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Config holds the connection settings
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store is a MongoDB-backed document store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials MongoDB and verifies the connection
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo URI is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo database is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := New(client.Database(cfg.Database), logger)
	s.client = client
	s.logger.Info("connected to mongo", zap.String("database", cfg.Database))
	return s, nil
}

// New wraps an existing database handle
func New(db *mongo.Database, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("mongo")}
}

func (s *Store) collection(m *store.Model) *mongo.Collection {
	return s.db.Collection(m.Collection)
}

// Find implements store.Store
func (s *Store) Find(ctx context.Context, m *store.Model, q store.Query) ([]store.Document, error) {
	opts := options.Find()
	if keys := q.Pagination.SortKeys(); len(keys) > 0 {
		opts.SetSort(sortDocument(keys))
	}
	if skip := q.Pagination.Skip(); skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if q.Pagination.PerPage > 0 {
		opts.SetLimit(int64(q.Pagination.PerPage))
	}
	if p := projection(q.Fields); p != nil {
		opts.SetProjection(p)
	}

	cur, err := s.collection(m).Find(ctx, translateFilter(m, q.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.Collection, err)
	}
	defer cur.Close(ctx)

	raw := make([]bson.M, 0)
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", m.Collection, err)
	}

	docs := make([]store.Document, len(raw))
	for i, r := range raw {
		docs[i] = fromBSON(r)
	}

	if err := store.PopulateDocuments(ctx, s, m, docs, q.Populate); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOne implements store.Store
func (s *Store) FindOne(ctx context.Context, m *store.Model, filter query.Filter, populate []store.Populate) (store.Document, error) {
	var raw bson.M
	err := s.collection(m).FindOne(ctx, translateFilter(m, filter)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.Collection, err)
	}

	doc := fromBSON(raw)
	if err := store.PopulateDocuments(ctx, s, m, []store.Document{doc}, populate); err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert implements store.Store
func (s *Store) Insert(ctx context.Context, m *store.Model, doc store.Document) (store.Document, error) {
	b := toBSON(m, doc)
	if _, ok := b[store.IDField]; !ok {
		b[store.IDField] = stamp()
	}

	if _, err := s.collection(m).InsertOne(ctx, b); err != nil {
		return nil, convertError(m, err)
	}
	return fromBSON(b), nil
}

// InsertMany implements store.Store
func (s *Store) InsertMany(ctx context.Context, m *store.Model, docs []store.Document) ([]store.Document, error) {
	if len(docs) == 0 {
		return []store.Document{}, nil
	}

	batch := make([]interface{}, len(docs))
	out := make([]store.Document, len(docs))
	for i, doc := range docs {
		b := toBSON(m, doc)
		if _, ok := b[store.IDField]; !ok {
			b[store.IDField] = stamp()
		}
		batch[i] = b
		out[i] = fromBSON(b)
	}

	if _, err := s.collection(m).InsertMany(ctx, batch); err != nil {
		return nil, convertError(m, err)
	}
	return out, nil
}

// Update implements store.Store
func (s *Store) Update(ctx context.Context, m *store.Model, id string, doc store.Document) (store.Document, error) {
	b := toBSON(m, doc)
	delete(b, store.IDField)

	res, err := s.collection(m).ReplaceOne(ctx, bson.M{store.IDField: objectID(id)}, b)
	if err != nil {
		return nil, convertError(m, err)
	}
	if res.MatchedCount == 0 {
		return nil, store.ErrNotFound
	}

	b[store.IDField] = objectID(id)
	return fromBSON(b), nil
}

// Delete implements store.Store
func (s *Store) Delete(ctx context.Context, m *store.Model, id string) error {
	res, err := s.collection(m).DeleteOne(ctx, bson.M{store.IDField: objectID(id)})
	if err != nil {
		return convertError(m, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close disconnects the client opened by Connect
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	return nil
}

func convertError(m *store.Model, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s: %v", store.ErrConflict, m.Name, err)
	}
	return fmt.Errorf("%s: %w", m.Collection, err)
}
