package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

const childColumns = `id, nom, prenom, date_naissance, classe_suivie, note_observation, photo, status, has_loan, parent_id, created_at, updated_at`

func scanChild(row rowScanner) (*domain.ChildProfile, error) {
	var (
		c        domain.ChildProfile
		parentID sql.NullString
	)
	err := row.Scan(&c.ID, &c.Nom, &c.Prenom, &c.DateNaissance, &c.ClasseSuivie, &c.NoteObservation,
		&c.Photo, &c.Status, &c.HasLoan, &parentID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ParentID = strPtr(parentID)
	return &c, nil
}

func (s *Store) GetChild(ctx context.Context, id string) (*domain.ChildProfile, error) {
	q := `SELECT ` + childColumns + ` FROM child_profiles WHERE id = $1`
	c, err := scanChild(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "child profile", id)
	}
	return c, nil
}

func (s *Store) ListChildren(ctx context.Context, f storage.ChildFilter) ([]domain.ChildProfile, error) {
	var c conds
	if len(f.IDs) > 0 {
		c.add("id = ANY(?)", textArray(f.IDs))
	}
	if f.HasLoan != nil {
		c.add("has_loan = ?", *f.HasLoan)
	}
	q := `SELECT ` + childColumns + ` FROM child_profiles` + c.where() + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list child profiles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChildProfile, 0, 16)
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child profile: %w", err)
		}
		out = append(out, *child)
	}
	return out, rows.Err()
}

func (s *Store) CreateChild(ctx context.Context, c *domain.ChildProfile) error {
	if c.ID == "" {
		c.ID = storage.NewID()
	}
	const q = `
INSERT INTO child_profiles (id, nom, prenom, date_naissance, classe_suivie, note_observation, photo, status, has_loan, parent_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, c.ID, c.Nom, c.Prenom, c.DateNaissance, c.ClasseSuivie,
		c.NoteObservation, c.Photo, c.Status, c.HasLoan, nullString(c.ParentID)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapErr(err, "child profile", c.ID)
}

func (s *Store) UpdateChild(ctx context.Context, c *domain.ChildProfile) error {
	const q = `
UPDATE child_profiles
SET nom = $2, prenom = $3, date_naissance = $4, classe_suivie = $5, note_observation = $6,
    photo = $7, status = $8, has_loan = $9, parent_id = $10, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, c.ID, c.Nom, c.Prenom, c.DateNaissance, c.ClasseSuivie,
		c.NoteObservation, c.Photo, c.Status, c.HasLoan, nullString(c.ParentID)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapErr(err, "child profile", c.ID)
}

func (s *Store) DeleteChild(ctx context.Context, id string) (*domain.ChildProfile, error) {
	q := `DELETE FROM child_profiles WHERE id = $1 RETURNING ` + childColumns
	c, err := scanChild(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "child profile", id)
	}
	return c, nil
}

func (s *Store) SetHasLoan(ctx context.Context, id string, hasLoan bool) (*domain.ChildProfile, error) {
	q := `UPDATE child_profiles SET has_loan = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + childColumns
	c, err := scanChild(s.db.QueryRowContext(ctx, q, id, hasLoan))
	if err != nil {
		return nil, mapErr(err, "child profile", id)
	}
	return c, nil
}
