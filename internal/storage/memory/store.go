// Package memory provides an in-memory implementation of the entity store
// used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

var (
	_ storage.UserStore    = (*Store)(nil)
	_ storage.ProjectStore = (*Store)(nil)
	_ storage.ChildStore   = (*Store)(nil)
	_ storage.BookStore    = (*Store)(nil)
	_ storage.LoanStore    = (*Store)(nil)

	_ storage.AccessRequestStore = (*Store)(nil)
)

// Store keeps every collection in maps guarded by one RWMutex. Documents are
// copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	projects map[string]domain.Project
	children map[string]domain.ChildProfile
	books    map[string]domain.Book
	loans    map[string]domain.BookLoan
	requests map[string]domain.AccessRequest

	// seq records insertion order so listings are stable.
	seq  map[string]int64
	next int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		projects: make(map[string]domain.Project),
		children: make(map[string]domain.ChildProfile),
		books:    make(map[string]domain.Book),
		loans:    make(map[string]domain.BookLoan),
		requests: make(map[string]domain.AccessRequest),
		seq:      make(map[string]int64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Storage exposes the store through the backend-neutral bundle.
func (s *Store) Storage() storage.Store {
	return storage.Store{
		Users:    s,
		Projects: s,
		Children: s,
		Books:    s,
		Loans:    s,
		Requests: s,
		Ping:     func(context.Context) error { return nil },
		Close:    func() error { return nil },
	}
}

func (s *Store) stamp(id string) {
	if _, ok := s.seq[id]; !ok {
		s.next++
		s.seq[id] = s.next
	}
}

func sortedKeys[T any](s *Store, m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return s.seq[keys[i]] < s.seq[keys[j]] })
	return keys
}

func idSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func inSet(set map[string]struct{}, id string) bool {
	if set == nil {
		return true
	}
	_, ok := set[id]
	return ok
}

// Users

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.NotFound("user", id)
	}
	out := u.Clone()
	return &out, nil
}

func (s *Store) ListUsers(_ context.Context, f storage.UserFilter) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := idSet(f.IDs)
	out := make([]domain.User, 0, len(s.users))
	for _, k := range sortedKeys(s, s.users) {
		u := s.users[k]
		if !inSet(ids, u.ID) {
			continue
		}
		if f.ProjectID != "" && domain.StrVal(u.Projet) != f.ProjectID {
			continue
		}
		if f.Email != "" && u.Email != f.Email {
			continue
		}
		out = append(out, u.Clone())
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = storage.NewID()
	}
	if _, ok := s.users[u.ID]; ok {
		return domain.Invalid("_id", "duplicate user id")
	}
	for _, existing := range s.users {
		if u.Email != "" && existing.Email == u.Email {
			return domain.Invalid("email", "already in use")
		}
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u.Clone()
	s.stamp(u.ID)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return domain.NotFound("user", u.ID)
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now()
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.NotFound("user", id)
	}
	delete(s.users, id)
	delete(s.seq, id)
	return &u, nil
}

func (s *Store) AssignProject(_ context.Context, ids []string, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for _, id := range storage.Dedupe(ids) {
		u, ok := s.users[id]
		if !ok {
			continue
		}
		if domain.StrVal(u.Projet) == projectID {
			continue
		}
		u.Projet = domain.StrPtr(projectID)
		u.UpdatedAt = now
		s.users[id] = u
		n++
	}
	return n, nil
}

func (s *Store) ClearProject(_ context.Context, projectID string, keep []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	var n int64
	now := s.now()
	for id, u := range s.users {
		if domain.StrVal(u.Projet) != projectID {
			continue
		}
		if _, ok := kept[id]; ok {
			continue
		}
		u.Projet = nil
		u.UpdatedAt = now
		s.users[id] = u
		n++
	}
	return n, nil
}

func (s *Store) ClearUserProject(_ context.Context, id, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.Projet == nil || *u.Projet != projectID {
		return 0, nil
	}
	u.Projet = nil
	u.UpdatedAt = s.now()
	s.users[id] = u
	return 1, nil
}

// Projects

func (s *Store) GetProject(_ context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.NotFound("project", id)
	}
	out := p.Clone()
	return &out, nil
}

func (s *Store) ListProjects(_ context.Context, f storage.ProjectFilter) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := idSet(f.IDs)
	out := make([]domain.Project, 0, len(s.projects))
	for _, k := range sortedKeys(s, s.projects) {
		p := s.projects[k]
		if !inSet(ids, p.ID) {
			continue
		}
		if f.AnimateurID != "" && !storage.Contains(p.Animateurs, f.AnimateurID) {
			continue
		}
		if f.BookID != "" && !storage.Contains(p.Books, f.BookID) {
			continue
		}
		if f.ChildID != "" && !storage.Contains(p.Children, f.ChildID) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *Store) CreateProject(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = storage.NewID()
	}
	if _, ok := s.projects[p.ID]; ok {
		return domain.Invalid("_id", "duplicate project id")
	}
	normalizeProject(p)
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.projects[p.ID] = p.Clone()
	s.stamp(p.ID)
	return nil
}

func (s *Store) UpdateProject(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[p.ID]
	if !ok {
		return domain.NotFound("project", p.ID)
	}
	normalizeProject(p)
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = s.now()
	s.projects[p.ID] = p.Clone()
	return nil
}

func (s *Store) DeleteProject(_ context.Context, id string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.NotFound("project", id)
	}
	delete(s.projects, id)
	delete(s.seq, id)
	return &p, nil
}

func (s *Store) PullReference(_ context.Context, field domain.RefField, id, exceptProjectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for pid, p := range s.projects {
		if pid == exceptProjectID {
			continue
		}
		refs := p.Refs(field)
		if !storage.Contains(refs, id) {
			continue
		}
		p = p.Clone()
		p.SetRefs(field, storage.Subtract(refs, []string{id}))
		p.UpdatedAt = now
		s.projects[pid] = p
		n++
	}
	return n, nil
}

func normalizeProject(p *domain.Project) {
	p.Animateurs = storage.Dedupe(p.Animateurs)
	p.Books = storage.Dedupe(p.Books)
	p.Children = storage.Dedupe(p.Children)
}

// Children

func (s *Store) GetChild(_ context.Context, id string) (*domain.ChildProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.children[id]
	if !ok {
		return nil, domain.NotFound("child profile", id)
	}
	out := c.Clone()
	return &out, nil
}

func (s *Store) ListChildren(_ context.Context, f storage.ChildFilter) ([]domain.ChildProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := idSet(f.IDs)
	out := make([]domain.ChildProfile, 0, len(s.children))
	for _, k := range sortedKeys(s, s.children) {
		c := s.children[k]
		if !inSet(ids, c.ID) {
			continue
		}
		if f.HasLoan != nil && c.HasLoan != *f.HasLoan {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *Store) CreateChild(_ context.Context, c *domain.ChildProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = storage.NewID()
	}
	if _, ok := s.children[c.ID]; ok {
		return domain.Invalid("_id", "duplicate child profile id")
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.children[c.ID] = c.Clone()
	s.stamp(c.ID)
	return nil
}

func (s *Store) UpdateChild(_ context.Context, c *domain.ChildProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.children[c.ID]
	if !ok {
		return domain.NotFound("child profile", c.ID)
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.now()
	s.children[c.ID] = c.Clone()
	return nil
}

func (s *Store) DeleteChild(_ context.Context, id string) (*domain.ChildProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.children[id]
	if !ok {
		return nil, domain.NotFound("child profile", id)
	}
	delete(s.children, id)
	delete(s.seq, id)
	return &c, nil
}

func (s *Store) SetHasLoan(_ context.Context, id string, hasLoan bool) (*domain.ChildProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.children[id]
	if !ok {
		return nil, domain.NotFound("child profile", id)
	}
	c.HasLoan = hasLoan
	c.UpdatedAt = s.now()
	s.children[id] = c
	out := c.Clone()
	return &out, nil
}

// Books

func (s *Store) GetBook(_ context.Context, id string) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, domain.NotFound("book", id)
	}
	return &b, nil
}

func (s *Store) ListBooks(_ context.Context, f storage.BookFilter) ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := idSet(f.IDs)
	out := make([]domain.Book, 0, len(s.books))
	for _, k := range sortedKeys(s, s.books) {
		if b := s.books[k]; inSet(ids, b.ID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) CreateBook(_ context.Context, b *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = storage.NewID()
	}
	if _, ok := s.books[b.ID]; ok {
		return domain.Invalid("_id", "duplicate book id")
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.books[b.ID] = *b
	s.stamp(b.ID)
	return nil
}

func (s *Store) UpdateBook(_ context.Context, b *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.books[b.ID]
	if !ok {
		return domain.NotFound("book", b.ID)
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = s.now()
	s.books[b.ID] = *b
	return nil
}

func (s *Store) DeleteBook(_ context.Context, id string) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, domain.NotFound("book", id)
	}
	delete(s.books, id)
	delete(s.seq, id)
	return &b, nil
}

// Loans

func (s *Store) GetLoan(_ context.Context, id string) (*domain.BookLoan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, domain.NotFound("book loan", id)
	}
	return &l, nil
}

func (s *Store) ListLoans(_ context.Context, f storage.LoanFilter) ([]domain.BookLoan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BookLoan, 0, len(s.loans))
	for _, k := range sortedKeys(s, s.loans) {
		l := s.loans[k]
		if f.ChildID != "" && l.ChildID != f.ChildID {
			continue
		}
		if f.BookID != "" && l.Book != f.BookID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) CreateLoan(_ context.Context, l *domain.BookLoan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = storage.NewID()
	}
	if _, ok := s.loans[l.ID]; ok {
		return domain.Invalid("_id", "duplicate book loan id")
	}
	now := s.now()
	if l.LoanDate.IsZero() {
		l.LoanDate = now
	}
	l.CreatedAt, l.UpdatedAt = now, now
	s.loans[l.ID] = *l
	s.stamp(l.ID)
	return nil
}

func (s *Store) UpdateLoan(_ context.Context, l *domain.BookLoan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.loans[l.ID]
	if !ok {
		return domain.NotFound("book loan", l.ID)
	}
	l.CreatedAt = cur.CreatedAt
	l.UpdatedAt = s.now()
	s.loans[l.ID] = *l
	return nil
}

func (s *Store) DeleteLoan(_ context.Context, id string) (*domain.BookLoan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, domain.NotFound("book loan", id)
	}
	delete(s.loans, id)
	delete(s.seq, id)
	return &l, nil
}

func (s *Store) DeleteLoansByChild(_ context.Context, childID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, l := range s.loans {
		if l.ChildID == childID {
			delete(s.loans, id)
			delete(s.seq, id)
			n++
		}
	}
	return n, nil
}

// Access requests

func (s *Store) GetAccessRequest(_ context.Context, id string) (*domain.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, domain.NotFound("access request", id)
	}
	out := r.Clone()
	return &out, nil
}

func (s *Store) ListAccessRequests(_ context.Context, f storage.AccessRequestFilter) ([]domain.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AccessRequest, 0, len(s.requests))
	for _, k := range sortedKeys(s, s.requests) {
		r := s.requests[k]
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Email != "" && r.Email != f.Email {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *Store) CreateAccessRequest(_ context.Context, r *domain.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = storage.NewID()
	}
	if _, ok := s.requests[r.ID]; ok {
		return domain.Invalid("_id", "duplicate access request id")
	}
	if r.Status == "" {
		r.Status = domain.RequestPending
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	s.requests[r.ID] = r.Clone()
	s.stamp(r.ID)
	return nil
}

func (s *Store) DecideAccessRequest(_ context.Context, id string, status domain.RequestStatus, userID string) (*domain.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, domain.NotFound("access request", id)
	}
	if r.Status != domain.RequestPending {
		return nil, domain.Invalid("status", fmt.Sprintf("access request already %s", r.Status))
	}
	now := s.now()
	r.Status = status
	r.UserID = domain.StrPtr(userID)
	r.DecidedAt = &now
	r.UpdatedAt = now
	s.requests[id] = r
	out := r.Clone()
	return &out, nil
}
