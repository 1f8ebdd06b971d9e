package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_UserCRUD tests the basic user lifecycle
func TestStore_UserCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &domain.User{Nom: "Martin", Prenom: "Alice", Email: "alice@example.org", Role: domain.RoleSimple}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", got.Email)

	t.Run("returned documents are copies", func(t *testing.T) {
		got.Projet = domain.StrPtr("p-x")
		again, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, again.Projet)
	})

	t.Run("duplicate email is a validation error", func(t *testing.T) {
		err := s.CreateUser(ctx, &domain.User{Email: "alice@example.org"})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("delete returns the removed document", func(t *testing.T) {
		deleted, err := s.DeleteUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, deleted.ID)

		_, err = s.GetUser(ctx, u.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

// TestStore_AssignAndClearProject tests the user update-many operations
func TestStore_AssignAndClearProject(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, s.CreateUser(ctx, &domain.User{ID: id, Email: id + "@example.org"}))
	}

	n, err := s.AssignProject(ctx, []string{"u1", "u2", "u2", "missing"}, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	users, err := s.ListUsers(ctx, storage.UserFilter{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "u2", users[1].ID)

	n, err = s.ClearProject(ctx, "p1", []string{"u2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	u1, _ := s.GetUser(ctx, "u1")
	u2, _ := s.GetUser(ctx, "u2")
	assert.Nil(t, u1.Projet)
	assert.Equal(t, "p1", domain.StrVal(u2.Projet))

	n, err = s.ClearUserProject(ctx, "u2", "p2")
	require.NoError(t, err)
	assert.Zero(t, n, "user points at another project")

	n, err = s.ClearUserProject(ctx, "u2", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	u2, _ = s.GetUser(ctx, "u2")
	assert.Nil(t, u2.Projet)
}

// TestStore_PullReference tests removing one id from every project's set
func TestStore_PullReference(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateProject(ctx, &domain.Project{ID: "p1", Books: []string{"b1", "b2", "b1"}}))
	require.NoError(t, s.CreateProject(ctx, &domain.Project{ID: "p2", Books: []string{"b1"}}))
	require.NoError(t, s.CreateProject(ctx, &domain.Project{ID: "p3", Books: []string{"b3"}}))

	p1, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, p1.Books, "sets are deduplicated on write")

	n, err := s.PullReference(ctx, domain.FieldBooks, "b1", "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p1, _ = s.GetProject(ctx, "p1")
	p2, _ := s.GetProject(ctx, "p2")
	assert.Equal(t, []string{"b2"}, p1.Books)
	assert.Equal(t, []string{"b1"}, p2.Books)

	projects, err := s.ListProjects(ctx, storage.ProjectFilter{BookID: "b1"})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p2", projects[0].ID)
}

// TestStore_ChildLoans tests the hasLoan flag and loan cleanup
func TestStore_ChildLoans(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateChild(ctx, &domain.ChildProfile{ID: "c1", Nom: "Durand"}))
	require.NoError(t, s.CreateChild(ctx, &domain.ChildProfile{ID: "c2", Nom: "Petit"}))

	c, err := s.SetHasLoan(ctx, "c1", true)
	require.NoError(t, err)
	assert.True(t, c.HasLoan)

	_, err = s.SetHasLoan(ctx, "nope", true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	yes := true
	withLoan, err := s.ListChildren(ctx, storage.ChildFilter{HasLoan: &yes})
	require.NoError(t, err)
	require.Len(t, withLoan, 1)
	assert.Equal(t, "c1", withLoan[0].ID)

	require.NoError(t, s.CreateLoan(ctx, &domain.BookLoan{Book: "b1", ChildID: "c1"}))
	require.NoError(t, s.CreateLoan(ctx, &domain.BookLoan{Book: "b2", ChildID: "c1"}))
	require.NoError(t, s.CreateLoan(ctx, &domain.BookLoan{Book: "b3", ChildID: "c2"}))

	loans, err := s.ListLoans(ctx, storage.LoanFilter{ChildID: "c1"})
	require.NoError(t, err)
	assert.Len(t, loans, 2)
	assert.False(t, loans[0].LoanDate.IsZero())

	n, err := s.DeleteLoansByChild(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := s.ListLoans(ctx, storage.LoanFilter{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c2", rest[0].ChildID)
}

// TestStore_UpdateMissing tests that updates never upsert
func TestStore_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := New()

	assert.True(t, errors.Is(s.UpdateUser(ctx, &domain.User{ID: "x"}), domain.ErrNotFound))
	assert.True(t, errors.Is(s.UpdateProject(ctx, &domain.Project{ID: "x"}), domain.ErrNotFound))
	assert.True(t, errors.Is(s.UpdateChild(ctx, &domain.ChildProfile{ID: "x"}), domain.ErrNotFound))
	assert.True(t, errors.Is(s.UpdateBook(ctx, &domain.Book{ID: "x"}), domain.ErrNotFound))
	assert.True(t, errors.Is(s.UpdateLoan(ctx, &domain.BookLoan{ID: "x"}), domain.ErrNotFound))
}

// TestStore_AccessRequests tests the pending-only decision
func TestStore_AccessRequests(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &domain.AccessRequest{Email: "a@example.org"}
	b := &domain.AccessRequest{Email: "b@example.org"}
	require.NoError(t, s.CreateAccessRequest(ctx, a))
	require.NoError(t, s.CreateAccessRequest(ctx, b))
	assert.Equal(t, domain.RequestPending, a.Status)

	decided, err := s.DecideAccessRequest(ctx, a.ID, domain.RequestApproved, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", domain.StrVal(decided.UserID))
	require.NotNil(t, decided.DecidedAt)

	_, err = s.DecideAccessRequest(ctx, a.ID, domain.RequestRejected, "")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = s.DecideAccessRequest(ctx, "missing", domain.RequestRejected, "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	pending, err := s.ListAccessRequests(ctx, storage.AccessRequestFilter{Status: domain.RequestPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	byEmail, err := s.ListAccessRequests(ctx, storage.AccessRequestFilter{Email: "a@example.org"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, domain.RequestApproved, byEmail[0].Status)
}
