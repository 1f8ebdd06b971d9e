package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

const requestColumns = `id, nom, prenom, email, note, status, user_id, decided_at, created_at, updated_at`

func scanRequest(row rowScanner) (*domain.AccessRequest, error) {
	var (
		r         domain.AccessRequest
		status    string
		userID    sql.NullString
		decidedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Nom, &r.Prenom, &r.Email, &r.Note, &status, &userID, &decidedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = domain.RequestStatus(status)
	r.UserID = strPtr(userID)
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	return &r, nil
}

func (s *Store) GetAccessRequest(ctx context.Context, id string) (*domain.AccessRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM access_requests WHERE id = $1`
	r, err := scanRequest(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "access request", id)
	}
	return r, nil
}

func (s *Store) ListAccessRequests(ctx context.Context, f storage.AccessRequestFilter) ([]domain.AccessRequest, error) {
	var c conds
	if f.Status != "" {
		c.add("status = ?", string(f.Status))
	}
	if f.Email != "" {
		c.add("email = ?", f.Email)
	}
	q := `SELECT ` + requestColumns + ` FROM access_requests` + c.where() + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AccessRequest, 0, 16)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) CreateAccessRequest(ctx context.Context, r *domain.AccessRequest) error {
	if r.ID == "" {
		r.ID = storage.NewID()
	}
	if r.Status == "" {
		r.Status = domain.RequestPending
	}
	const q = `
INSERT INTO access_requests (id, nom, prenom, email, note, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, r.ID, r.Nom, r.Prenom, r.Email, r.Note, string(r.Status)).
		Scan(&r.CreatedAt, &r.UpdatedAt)
	return mapErr(err, "access request", r.ID)
}

func (s *Store) DecideAccessRequest(ctx context.Context, id string, status domain.RequestStatus, userID string) (*domain.AccessRequest, error) {
	q := `
UPDATE access_requests SET status = $2, user_id = $3, decided_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING ` + requestColumns
	r, err := scanRequest(s.db.QueryRowContext(ctx, q, id, string(status), nullString(&userID)))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapErr(err, "access request", id)
	}

	cur, err := s.GetAccessRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, domain.Invalid("status", fmt.Sprintf("access request already %s", cur.Status))
}
