package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/lib/pq"
)

const projectColumns = `id, nom, annee, description, image, animateurs, books, children, projet, created_at, updated_at`

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p                           domain.Project
		image, projet               sql.NullString
		animateurs, books, children pq.StringArray
	)
	err := row.Scan(&p.ID, &p.Nom, &p.Annee, &p.Description, &image,
		&animateurs, &books, &children, &projet, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Image = strPtr(image)
	p.Projet = strPtr(projet)
	p.Animateurs = storage.Dedupe(animateurs)
	p.Books = storage.Dedupe(books)
	p.Children = storage.Dedupe(children)
	return &p, nil
}

// refColumn whitelists the column names PullReference may touch.
func refColumn(f domain.RefField) (string, error) {
	switch f {
	case domain.FieldAnimateurs, domain.FieldBooks, domain.FieldChildren:
		return string(f), nil
	}
	return "", domain.Invalid("field", fmt.Sprintf("unknown reference field %q", f))
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "project", id)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, f storage.ProjectFilter) ([]domain.Project, error) {
	var c conds
	if len(f.IDs) > 0 {
		c.add("id = ANY(?)", textArray(f.IDs))
	}
	if f.AnimateurID != "" {
		c.add("? = ANY(animateurs)", f.AnimateurID)
	}
	if f.BookID != "" {
		c.add("? = ANY(books)", f.BookID)
	}
	if f.ChildID != "" {
		c.add("? = ANY(children)", f.ChildID)
	}
	q := `SELECT ` + projectColumns + ` FROM projects` + c.where() + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = storage.NewID()
	}
	normalizeProject(p)
	const q = `
INSERT INTO projects (id, nom, annee, description, image, animateurs, books, children, projet)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, p.ID, p.Nom, p.Annee, p.Description, nullString(p.Image),
		pq.Array(p.Animateurs), pq.Array(p.Books), pq.Array(p.Children), nullString(p.Projet)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err, "project", p.ID)
}

func (s *Store) UpdateProject(ctx context.Context, p *domain.Project) error {
	normalizeProject(p)
	const q = `
UPDATE projects
SET nom = $2, annee = $3, description = $4, image = $5,
    animateurs = $6, books = $7, children = $8, projet = $9, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, p.ID, p.Nom, p.Annee, p.Description, nullString(p.Image),
		pq.Array(p.Animateurs), pq.Array(p.Books), pq.Array(p.Children), nullString(p.Projet)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err, "project", p.ID)
}

func (s *Store) DeleteProject(ctx context.Context, id string) (*domain.Project, error) {
	q := `DELETE FROM projects WHERE id = $1 RETURNING ` + projectColumns
	p, err := scanProject(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "project", id)
	}
	return p, nil
}

func (s *Store) PullReference(ctx context.Context, field domain.RefField, id, exceptProjectID string) (int64, error) {
	col, err := refColumn(field)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`
UPDATE projects SET %[1]s = array_remove(%[1]s, $1), updated_at = NOW()
WHERE $1 = ANY(%[1]s) AND id <> $2`, col)
	n, err := rowsAffected(s.db.ExecContext(ctx, q, id, exceptProjectID))
	if err != nil {
		return 0, fmt.Errorf("pull %s %q: %w", col, id, err)
	}
	return n, nil
}

func normalizeProject(p *domain.Project) {
	p.Animateurs = storage.Dedupe(p.Animateurs)
	p.Books = storage.Dedupe(p.Books)
	p.Children = storage.Dedupe(p.Children)
}
