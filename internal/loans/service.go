// Package loans records books lent to children and keeps the child's
// hasLoan flag in step with them.
package loans

import (
	"context"
	"strings"
	"time"

	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

// LoanView is a loan with its book document in place of the book id. Book
// is nil when the book no longer exists.
type LoanView struct {
	domain.BookLoan
	Book *domain.Book `json:"book"`
}

type CreateInput struct {
	Book       string
	ChildID    string
	LoanDate   time.Time
	ReturnDate time.Time
}

// UpdateInput holds the fields to change; nil fields are left as they are.
type UpdateInput struct {
	Book       *string
	ChildID    *string
	ReturnDate *time.Time
}

type Service struct {
	loans storage.LoanStore
	books storage.BookStore
	rules *consistency.Rules
	log   *logger.Logger
}

func NewService(st storage.Store, rules *consistency.Rules, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		loans: st.Loans,
		books: st.Books,
		rules: rules,
		log:   log.With("service", "loans"),
	}
}

// Create stores the loan and flags the child. When flagging fails the loan
// stays created and is returned along with an InconsistencyError.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.BookLoan, error) {
	in.Book = strings.TrimSpace(in.Book)
	in.ChildID = strings.TrimSpace(in.ChildID)
	if in.Book == "" {
		return nil, domain.Invalid("book", "is required")
	}
	if in.ChildID == "" {
		return nil, domain.Invalid("childId", "is required")
	}
	if in.ReturnDate.IsZero() {
		return nil, domain.Invalid("returnDate", "is required")
	}

	l := &domain.BookLoan{Book: in.Book, ChildID: in.ChildID, LoanDate: in.LoanDate, ReturnDate: in.ReturnDate}
	if err := s.loans.CreateLoan(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info("book loan created", "loan_id", l.ID, "child_id", l.ChildID, "book_id", l.Book)

	if _, err := s.rules.OnBookLoanCreated(ctx, l.ChildID); err != nil {
		return l, s.rules.Inconsistent(ctx, consistency.OpBookLoanCreated, "child profile", l.ChildID, err)
	}
	return l, nil
}

func (s *Service) List(ctx context.Context) ([]domain.BookLoan, error) {
	return s.loans.ListLoans(ctx, storage.LoanFilter{})
}

// ListByChild returns the child's loans with their books populated.
func (s *Service) ListByChild(ctx context.Context, childID string) ([]LoanView, error) {
	items, err := s.loans.ListLoans(ctx, storage.LoanFilter{ChildID: childID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, l := range items {
		ids = append(ids, l.Book)
	}
	books, err := s.books.ListBooks(ctx, storage.BookFilter{IDs: storage.Dedupe(ids)})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}

	out := make([]LoanView, 0, len(items))
	for _, l := range items {
		out = append(out, LoanView{BookLoan: l, Book: byID[l.Book]})
	}
	return out, nil
}

// Update applies in. Moving the loan to another child moves the hasLoan
// flag with it.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.BookLoan, error) {
	before, err := s.loans.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	after := *before
	if in.Book != nil {
		if after.Book = strings.TrimSpace(*in.Book); after.Book == "" {
			return nil, domain.Invalid("book", "must not be empty")
		}
	}
	if in.ChildID != nil {
		if after.ChildID = strings.TrimSpace(*in.ChildID); after.ChildID == "" {
			return nil, domain.Invalid("childId", "must not be empty")
		}
	}
	if in.ReturnDate != nil {
		after.ReturnDate = *in.ReturnDate
	}

	if err := s.loans.UpdateLoan(ctx, &after); err != nil {
		return nil, err
	}
	if err := s.rules.OnBookLoanReassigned(ctx, *before, after); err != nil {
		return &after, s.rules.Inconsistent(ctx, consistency.OpBookLoanReassigned, "book loan", after.ID, err)
	}
	return &after, nil
}

// Delete removes the loan (the book is returned) and clears the child's flag.
func (s *Service) Delete(ctx context.Context, id string) (*domain.BookLoan, error) {
	l, err := s.loans.DeleteLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("book loan deleted", "loan_id", l.ID, "child_id", l.ChildID)

	if _, err := s.rules.OnBookLoanDeleted(ctx, *l); err != nil {
		return l, s.rules.Inconsistent(ctx, consistency.OpBookLoanDeleted, "child profile", l.ChildID, err)
	}
	return l, nil
}
