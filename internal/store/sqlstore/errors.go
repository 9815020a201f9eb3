package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/conduit-lang/docapi/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// convertError maps driver errors onto store errors
func convertError(m *store.Model, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s: %s", store.ErrConflict, m.Name, pgErr.Detail)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %s", store.ErrConflict, m.Name)
		}
	}

	return fmt.Errorf("%s: %w", m.Collection, err)
}
