// Package books manages the book catalog.
package books

import (
	"context"
	"strings"

	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

type Input struct {
	Title  *string
	Author *string
	Photo  *string
}

type Service struct {
	books storage.BookStore
	rules *consistency.Rules
	log   *logger.Logger
}

func NewService(st storage.Store, rules *consistency.Rules, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{books: st.Books, rules: rules, log: log.With("service", "books")}
}

func (s *Service) List(ctx context.Context) ([]domain.Book, error) {
	return s.books.ListBooks(ctx, storage.BookFilter{})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.GetBook(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Book, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, domain.Invalid("title", "is required")
	}
	b := &domain.Book{}
	if err := apply(b, in); err != nil {
		return nil, err
	}
	if err := s.books.CreateBook(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info("book created", "book_id", b.ID)
	return b, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Book, error) {
	b, err := s.books.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(b, in); err != nil {
		return nil, err
	}
	if err := s.books.UpdateBook(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes the book and drops it from every project. Loans of the
// book are kept as the lending history.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Book, error) {
	b, err := s.books.DeleteBook(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("book deleted", "book_id", id)

	if err := s.rules.OnBookDeleted(ctx, id); err != nil {
		return b, s.rules.Inconsistent(ctx, consistency.OpBookDeleted, "project", id, err)
	}
	return b, nil
}

func apply(b *domain.Book, in Input) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.Invalid("title", "must not be empty")
		}
		b.Title = title
	}
	if in.Author != nil {
		b.Author = strings.TrimSpace(*in.Author)
	}
	if in.Photo != nil {
		b.Photo = strings.TrimSpace(*in.Photo)
	}
	return nil
}
