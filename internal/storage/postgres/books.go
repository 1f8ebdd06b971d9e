package postgres

import (
	"context"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

const bookColumns = `id, title, author, photo, created_at, updated_at`

func scanBook(row rowScanner) (*domain.Book, error) {
	var b domain.Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Photo, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	b, err := scanBook(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "book", id)
	}
	return b, nil
}

func (s *Store) ListBooks(ctx context.Context, f storage.BookFilter) ([]domain.Book, error) {
	var c conds
	if len(f.IDs) > 0 {
		c.add("id = ANY(?)", textArray(f.IDs))
	}
	q := `SELECT ` + bookColumns + ` FROM books` + c.where() + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Book, 0, 16)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	if b.ID == "" {
		b.ID = storage.NewID()
	}
	const q = `
INSERT INTO books (id, title, author, photo)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, b.ID, b.Title, b.Author, b.Photo).Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapErr(err, "book", b.ID)
}

func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) error {
	const q = `
UPDATE books SET title = $2, author = $3, photo = $4, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, b.ID, b.Title, b.Author, b.Photo).Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapErr(err, "book", b.ID)
}

func (s *Store) DeleteBook(ctx context.Context, id string) (*domain.Book, error) {
	q := `DELETE FROM books WHERE id = $1 RETURNING ` + bookColumns
	b, err := scanBook(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "book", id)
	}
	return b, nil
}
