// Package postgres implements the entity store on PostgreSQL through
// database/sql. Set-valued project fields are text[] columns.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ storage.UserStore    = (*Store)(nil)
	_ storage.ProjectStore = (*Store)(nil)
	_ storage.ChildStore   = (*Store)(nil)
	_ storage.BookStore    = (*Store)(nil)
	_ storage.LoanStore    = (*Store)(nil)

	_ storage.AccessRequestStore = (*Store)(nil)
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Storage exposes the store through the backend-neutral bundle. closeFn
// releases the underlying connection and may be nil.
func (s *Store) Storage(closeFn func() error) storage.Store {
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return storage.Store{
		Users:    s,
		Projects: s,
		Children: s,
		Books:    s,
		Loans:    s,
		Requests: s,
		Ping:     s.db.PingContext,
		Close:    closeFn,
	}
}

// Migrate applies the embedded schema one statement at a time.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return out
}

// mapErr translates driver errors into the domain taxonomy.
func mapErr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.Invalid(pgErr.ColumnName, fmt.Sprintf("duplicate %s", entity))
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.Invalid(pqErr.Column, fmt.Sprintf("duplicate %s", entity))
	}

	return fmt.Errorf("%s %q: %w", entity, id, err)
}

// conds accumulates AND-ed predicates with positional arguments. Each
// expression uses "?" for its single argument.
type conds struct {
	parts []string
	args  []any
}

func (c *conds) add(expr string, arg any) {
	c.args = append(c.args, arg)
	c.parts = append(c.parts, strings.ReplaceAll(expr, "?", "$"+strconv.Itoa(len(c.args))))
}

func (c *conds) where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.parts, " AND ")
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func textArray(ids []string) any {
	return pq.Array(storage.Dedupe(ids))
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
