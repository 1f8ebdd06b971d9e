package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

const loanColumns = `id, book, child_id, loan_date, return_date, created_at, updated_at`

func scanLoan(row rowScanner) (*domain.BookLoan, error) {
	var l domain.BookLoan
	if err := row.Scan(&l.ID, &l.Book, &l.ChildID, &l.LoanDate, &l.ReturnDate, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetLoan(ctx context.Context, id string) (*domain.BookLoan, error) {
	q := `SELECT ` + loanColumns + ` FROM book_loans WHERE id = $1`
	l, err := scanLoan(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "book loan", id)
	}
	return l, nil
}

func (s *Store) ListLoans(ctx context.Context, f storage.LoanFilter) ([]domain.BookLoan, error) {
	var c conds
	if f.ChildID != "" {
		c.add("child_id = ?", f.ChildID)
	}
	if f.BookID != "" {
		c.add("book = ?", f.BookID)
	}
	q := `SELECT ` + loanColumns + ` FROM book_loans` + c.where() + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list book loans: %w", err)
	}
	defer rows.Close()

	out := make([]domain.BookLoan, 0, 16)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book loan: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *Store) CreateLoan(ctx context.Context, l *domain.BookLoan) error {
	if l.ID == "" {
		l.ID = storage.NewID()
	}
	if l.LoanDate.IsZero() {
		l.LoanDate = time.Now().UTC()
	}
	const q = `
INSERT INTO book_loans (id, book, child_id, loan_date, return_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, l.ID, l.Book, l.ChildID, l.LoanDate, l.ReturnDate).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapErr(err, "book loan", l.ID)
}

func (s *Store) UpdateLoan(ctx context.Context, l *domain.BookLoan) error {
	const q = `
UPDATE book_loans SET book = $2, child_id = $3, loan_date = $4, return_date = $5, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, l.ID, l.Book, l.ChildID, l.LoanDate, l.ReturnDate).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapErr(err, "book loan", l.ID)
}

func (s *Store) DeleteLoan(ctx context.Context, id string) (*domain.BookLoan, error) {
	q := `DELETE FROM book_loans WHERE id = $1 RETURNING ` + loanColumns
	l, err := scanLoan(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "book loan", id)
	}
	return l, nil
}

func (s *Store) DeleteLoansByChild(ctx context.Context, childID string) (int64, error) {
	n, err := rowsAffected(s.db.ExecContext(ctx, `DELETE FROM book_loans WHERE child_id = $1`, childID))
	if err != nil {
		return 0, fmt.Errorf("delete loans of child %q: %w", childID, err)
	}
	return n, nil
}
