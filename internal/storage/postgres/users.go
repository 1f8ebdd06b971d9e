package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

const userColumns = `id, nom, prenom, email, role, projet, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u      domain.User
		role   string
		projet sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Nom, &u.Prenom, &u.Email, &role, &projet, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Projet = strPtr(projet)
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "user", id)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, f storage.UserFilter) ([]domain.User, error) {
	var c conds
	if len(f.IDs) > 0 {
		c.add("id = ANY(?)", textArray(f.IDs))
	}
	if f.ProjectID != "" {
		c.add("projet = ?", f.ProjectID)
	}
	if f.Email != "" {
		c.add("email = ?", f.Email)
	}
	q := `SELECT ` + userColumns + ` FROM users` + c.where() + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.User, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = storage.NewID()
	}
	const q = `
INSERT INTO users (id, nom, prenom, email, role, projet)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, u.ID, u.Nom, u.Prenom, u.Email, string(u.Role), nullString(u.Projet)).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err, "user", u.ID)
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	const q = `
UPDATE users
SET nom = $2, prenom = $3, email = $4, role = $5, projet = $6, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, u.ID, u.Nom, u.Prenom, u.Email, string(u.Role), nullString(u.Projet)).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err, "user", u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	q := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "user", id)
	}
	return u, nil
}

func (s *Store) AssignProject(ctx context.Context, ids []string, projectID string) (int64, error) {
	const q = `
UPDATE users SET projet = $2, updated_at = NOW()
WHERE id = ANY($1) AND projet IS DISTINCT FROM $2`
	n, err := rowsAffected(s.db.ExecContext(ctx, q, textArray(ids), projectID))
	if err != nil {
		return 0, fmt.Errorf("assign project %q: %w", projectID, err)
	}
	return n, nil
}

func (s *Store) ClearProject(ctx context.Context, projectID string, keep []string) (int64, error) {
	const q = `
UPDATE users SET projet = NULL, updated_at = NOW()
WHERE projet = $1 AND NOT (id = ANY($2))`
	n, err := rowsAffected(s.db.ExecContext(ctx, q, projectID, textArray(keep)))
	if err != nil {
		return 0, fmt.Errorf("clear project %q: %w", projectID, err)
	}
	return n, nil
}

func (s *Store) ClearUserProject(ctx context.Context, id, projectID string) (int64, error) {
	const q = `
UPDATE users SET projet = NULL, updated_at = NOW()
WHERE id = $1 AND projet = $2`
	n, err := rowsAffected(s.db.ExecContext(ctx, q, id, projectID))
	if err != nil {
		return 0, fmt.Errorf("clear project of user %q: %w", id, err)
	}
	return n, nil
}
