// Package sqlstore implements store.Store on a relational database. Each
// collection is a table of JSON documents keyed by id; filters are evaluated
// in process with store.Match.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/web/query"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"go.uber.org/zap"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store keeps documents as JSON in SQL tables
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
	newID  func() string

	mu     sync.Mutex
	tables map[string]bool
}

// Open opens and pings a database
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	return New(db, driver, logger)
}

// New wraps an open database handle
func New(db *sql.DB, driver string, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if driver == "postgres" {
		driver = DriverPostgres
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver: %q", driver)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		db:     db,
		driver: driver,
		logger: logger.Named("sql"),
		newID:  func() string { return uuid.New().String() },
		tables: make(map[string]bool),
	}, nil
}

// placeholder returns the n-th (1-based) bind parameter of the dialect
func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// table validates the collection name and creates its table on first use
func (s *Store) table(ctx context.Context, m *store.Model) (string, error) {
	name := m.Collection
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("invalid collection name: %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	quoted := `"` + name + `"`
	if s.tables[name] {
		return quoted, nil
	}

	stmt := "CREATE TABLE IF NOT EXISTS " + quoted + " (id TEXT PRIMARY KEY, doc TEXT NOT NULL)"
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", name, err)
	}
	s.tables[name] = true
	s.logger.Debug("table ready", zap.String("table", name))
	return quoted, nil
}

// scan decodes the rows of a (id, doc) query
func (s *Store) scan(m *store.Model, rows *sql.Rows) ([]store.Document, error) {
	defer rows.Close()

	docs := make([]store.Document, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", m.Collection, err)
		}
		doc, err := decode(m, id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.Collection, err)
	}
	return docs, nil
}

func decode(m *store.Model, id, raw string) (store.Document, error) {
	doc := store.Document{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("corrupt document %s/%s: %w", m.Collection, id, err)
	}
	doc[store.IDField] = id
	if err := m.CastDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func encode(doc store.Document) (string, error) {
	body := make(store.Document, len(doc))
	for k, v := range doc {
		if k != store.IDField {
			body[k] = v
		}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(b), nil
}

// candidates loads the documents that may match filter. A literal id is
// looked up directly; anything else scans the table.
func (s *Store) candidates(ctx context.Context, m *store.Model, filter query.Filter) ([]store.Document, error) {
	table, err := s.table(ctx, m)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if id, ok := filter[store.IDField].(string); ok {
		rows, err = s.db.QueryContext(ctx, "SELECT id, doc FROM "+table+" WHERE id = "+s.placeholder(1), id)
	} else {
		rows, err = s.db.QueryContext(ctx, "SELECT id, doc FROM "+table+" ORDER BY id")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.Collection, err)
	}

	docs, err := s.scan(m, rows)
	if err != nil {
		return nil, err
	}

	out := docs[:0]
	for _, doc := range docs {
		if store.Match(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Find implements store.Store
func (s *Store) Find(ctx context.Context, m *store.Model, q store.Query) ([]store.Document, error) {
	docs, err := s.candidates(ctx, m, q.Filter)
	if err != nil {
		return nil, err
	}

	store.Sort(docs, q.Pagination.SortKeys())
	docs = store.Page(docs, q.Pagination)

	if err := store.PopulateDocuments(ctx, s, m, docs, q.Populate); err != nil {
		return nil, err
	}
	for i, doc := range docs {
		docs[i] = store.Project(doc, q.Fields)
	}
	return docs, nil
}

// FindOne implements store.Store
func (s *Store) FindOne(ctx context.Context, m *store.Model, filter query.Filter, populate []store.Populate) (store.Document, error) {
	docs, err := s.candidates(ctx, m, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}

	doc := docs[0]
	if err := store.PopulateDocuments(ctx, s, m, []store.Document{doc}, populate); err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert implements store.Store
func (s *Store) Insert(ctx context.Context, m *store.Model, doc store.Document) (store.Document, error) {
	docs, err := s.InsertMany(ctx, m, []store.Document{doc})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// InsertMany implements store.Store. The documents are written in one
// transaction.
func (s *Store) InsertMany(ctx context.Context, m *store.Model, docs []store.Document) ([]store.Document, error) {
	table, err := s.table(ctx, m)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := "INSERT INTO " + table + " (id, doc) VALUES (" + s.placeholder(1) + ", " + s.placeholder(2) + ")"

	out := make([]store.Document, len(docs))
	for i, doc := range docs {
		cp := doc.Clone()
		if cp == nil {
			cp = store.Document{}
		}
		if cp.ID() == "" {
			cp[store.IDField] = s.newID()
		}
		raw, err := encode(cp)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, stmt, cp.ID(), raw); err != nil {
			return nil, convertError(m, err)
		}
		out[i] = cp
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

// Update implements store.Store
func (s *Store) Update(ctx context.Context, m *store.Model, id string, doc store.Document) (store.Document, error) {
	table, err := s.table(ctx, m)
	if err != nil {
		return nil, err
	}

	raw, err := encode(doc)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE "+table+" SET doc = "+s.placeholder(1)+" WHERE id = "+s.placeholder(2), raw, id)
	if err != nil {
		return nil, convertError(m, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, store.ErrNotFound
	}

	out := doc.Clone()
	if out == nil {
		out = store.Document{}
	}
	out[store.IDField] = id
	return out, nil
}

// Delete implements store.Store
func (s *Store) Delete(ctx context.Context, m *store.Model, id string) error {
	table, err := s.table(ctx, m)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = "+s.placeholder(1), id)
	if err != nil {
		return convertError(m, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close implements store.Store
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
