// Package storage declares the collections of the entity store. Every
// backend (memory, postgres, mongo) implements the same interfaces; none of
// them offers transactions spanning more than one collection.
package storage

import (
	"context"

	"github.com/asso-lecture/asso-backend/internal/domain"
)

// UserFilter selects users. Empty fields do not constrain the result.
type UserFilter struct {
	IDs       []string
	ProjectID string
	Email     string
}

type ProjectFilter struct {
	IDs         []string
	AnimateurID string
	BookID      string
	ChildID     string
}

type ChildFilter struct {
	IDs     []string
	HasLoan *bool
}

type BookFilter struct {
	IDs []string
}

type LoanFilter struct {
	ChildID string
	BookID  string
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUser(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, id string) (*domain.User, error)

	// AssignProject sets projet = projectID on every user in ids.
	AssignProject(ctx context.Context, ids []string, projectID string) (int64, error)
	// ClearProject sets projet = null on every user pointing at projectID
	// whose id is not in keep.
	ClearProject(ctx context.Context, projectID string, keep []string) (int64, error)
	// ClearUserProject sets projet = null on user id if it still points at
	// projectID.
	ClearUserProject(ctx context.Context, id, projectID string) (int64, error)
}

type AccessRequestFilter struct {
	Status domain.RequestStatus
	Email  string
}

type AccessRequestStore interface {
	GetAccessRequest(ctx context.Context, id string) (*domain.AccessRequest, error)
	ListAccessRequests(ctx context.Context, f AccessRequestFilter) ([]domain.AccessRequest, error)
	CreateAccessRequest(ctx context.Context, r *domain.AccessRequest) error
	// DecideAccessRequest moves a pending request to status and records
	// userID when it is not empty. A request that is no longer pending is
	// left untouched and reported as a validation error.
	DecideAccessRequest(ctx context.Context, id string, status domain.RequestStatus, userID string) (*domain.AccessRequest, error)
}

type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context, f ProjectFilter) ([]domain.Project, error)
	CreateProject(ctx context.Context, p *domain.Project) error
	UpdateProject(ctx context.Context, p *domain.Project) error
	DeleteProject(ctx context.Context, id string) (*domain.Project, error)

	// PullReference removes id from field on every project except
	// exceptProjectID (which may be empty).
	PullReference(ctx context.Context, field domain.RefField, id, exceptProjectID string) (int64, error)
}

type ChildStore interface {
	GetChild(ctx context.Context, id string) (*domain.ChildProfile, error)
	ListChildren(ctx context.Context, f ChildFilter) ([]domain.ChildProfile, error)
	CreateChild(ctx context.Context, c *domain.ChildProfile) error
	UpdateChild(ctx context.Context, c *domain.ChildProfile) error
	DeleteChild(ctx context.Context, id string) (*domain.ChildProfile, error)
	SetHasLoan(ctx context.Context, id string, hasLoan bool) (*domain.ChildProfile, error)
}

type BookStore interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	ListBooks(ctx context.Context, f BookFilter) ([]domain.Book, error)
	CreateBook(ctx context.Context, b *domain.Book) error
	UpdateBook(ctx context.Context, b *domain.Book) error
	DeleteBook(ctx context.Context, id string) (*domain.Book, error)
}

type LoanStore interface {
	GetLoan(ctx context.Context, id string) (*domain.BookLoan, error)
	ListLoans(ctx context.Context, f LoanFilter) ([]domain.BookLoan, error)
	CreateLoan(ctx context.Context, l *domain.BookLoan) error
	UpdateLoan(ctx context.Context, l *domain.BookLoan) error
	DeleteLoan(ctx context.Context, id string) (*domain.BookLoan, error)
	DeleteLoansByChild(ctx context.Context, childID string) (int64, error)
}

// Store bundles the collections of one backend.
type Store struct {
	Users    UserStore
	Projects ProjectStore
	Children ChildStore
	Books    BookStore
	Loans    LoanStore
	Requests AccessRequestStore

	// Ping checks backend connectivity; nil for backends without one.
	Ping  func(ctx context.Context) error
	Close func() error
}
