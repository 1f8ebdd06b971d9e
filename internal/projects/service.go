// Package projects manages projects and their sets of animateurs, books and
// children.
package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

// ProjectView is a project with its references resolved to documents.
// References to documents that no longer exist are skipped.
type ProjectView struct {
	domain.Project
	Animateurs []domain.User         `json:"animateurs"`
	Books      []domain.Book         `json:"books"`
	Children   []domain.ChildProfile `json:"children"`
}

type CreateInput struct {
	Nom         string
	Annee       int
	Description string
	Image       string
	Animateurs  []string
	Books       []string
	Children    []string
	Projet      string
}

// UpdateInput holds the fields to change. Nil slices leave the set as is;
// an empty slice clears it.
type UpdateInput struct {
	Nom         *string
	Annee       *int
	Description *string
	Image       domain.NullableString
	Animateurs  *[]string
	Books       *[]string
	Children    *[]string
	Projet      domain.NullableString
}

type Filter struct {
	AnimateurID string
	BookID      string
	ChildID     string
}

type Service struct {
	store storage.Store
	rules *consistency.Rules
	log   *logger.Logger
}

func NewService(st storage.Store, rules *consistency.Rules, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: st, rules: rules, log: log.With("service", "projects")}
}

func (s *Service) List(ctx context.Context, f Filter) ([]domain.Project, error) {
	return s.store.Projects.ListProjects(ctx, storage.ProjectFilter{
		AnimateurID: f.AnimateurID,
		BookID:      f.BookID,
		ChildID:     f.ChildID,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*ProjectView, error) {
	p, err := s.store.Projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	v := &ProjectView{Project: *p}
	if v.Animateurs, err = s.users(ctx, p); err != nil {
		return nil, err
	}
	if v.Books, err = s.books(ctx, p); err != nil {
		return nil, err
	}
	if v.Children, err = s.children(ctx, p); err != nil {
		return nil, err
	}
	return v, nil
}

// Create stores a new project. Listed animateurs are moved into it: their
// projet points here and they leave any other project.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Project, error) {
	nom := strings.TrimSpace(in.Nom)
	if nom == "" {
		return nil, domain.Invalid("nom", "is required")
	}
	if in.Annee <= 0 {
		return nil, domain.Invalid("annee", "is required")
	}
	projet := strings.TrimSpace(in.Projet)
	if err := s.checkParent(ctx, "", projet); err != nil {
		return nil, err
	}

	p := &domain.Project{
		Nom:         nom,
		Annee:       in.Annee,
		Description: in.Description,
		Image:       domain.StrPtr(in.Image),
		Animateurs:  storage.Dedupe(in.Animateurs),
		Books:       storage.Dedupe(in.Books),
		Children:    storage.Dedupe(in.Children),
		Projet:      domain.StrPtr(projet),
	}
	if err := s.store.Projects.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("project created", "project_id", p.ID, "animateurs", len(p.Animateurs))

	if len(p.Animateurs) > 0 {
		if err := s.rules.OnProjectAnimateursChanged(ctx, p.ID, p.Animateurs); err != nil {
			return p, s.rules.Inconsistent(ctx, consistency.OpProjectAnimateursChanged, "user", p.ID, err)
		}
	}
	return p, nil
}

// Update applies in. A given animateurs list replaces the current one and
// the users' projet is brought in line with it.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Project, error) {
	p, err := s.store.Projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Nom != nil {
		nom := strings.TrimSpace(*in.Nom)
		if nom == "" {
			return nil, domain.Invalid("nom", "must not be empty")
		}
		p.Nom = nom
	}
	if in.Annee != nil {
		if *in.Annee <= 0 {
			return nil, domain.Invalid("annee", "must be positive")
		}
		p.Annee = *in.Annee
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Image.Set {
		p.Image = domain.StrPtr(in.Image.Val())
	}
	if in.Projet.Set {
		projet := strings.TrimSpace(in.Projet.Val())
		if projet != domain.StrVal(p.Projet) {
			if err := s.checkParent(ctx, id, projet); err != nil {
				return nil, err
			}
		}
		p.Projet = domain.StrPtr(projet)
	}
	if in.Animateurs != nil {
		p.Animateurs = storage.Dedupe(*in.Animateurs)
	}
	if in.Books != nil {
		p.Books = storage.Dedupe(*in.Books)
	}
	if in.Children != nil {
		p.Children = storage.Dedupe(*in.Children)
	}

	if err := s.store.Projects.UpdateProject(ctx, p); err != nil {
		return nil, err
	}

	if in.Animateurs != nil {
		s.log.Info("project animateurs replaced", "project_id", id, "animateurs", len(p.Animateurs))
		if err := s.rules.OnProjectAnimateursChanged(ctx, id, p.Animateurs); err != nil {
			return p, s.rules.Inconsistent(ctx, consistency.OpProjectAnimateursChanged, "user", id, err)
		}
	}
	return p, nil
}

// Delete clears projet on the project's users and then removes the
// project. If the users cannot be cleared the project is kept.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Project, error) {
	if _, err := s.store.Projects.GetProject(ctx, id); err != nil {
		return nil, err
	}
	if err := s.rules.OnProjectDeleted(ctx, id); err != nil {
		return nil, fmt.Errorf("release users of project %q: %w", id, err)
	}
	p, err := s.store.Projects.DeleteProject(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("project deleted", "project_id", id)
	return p, nil
}

func (s *Service) AddBooks(ctx context.Context, id string, ids []string) (*domain.Project, error) {
	return s.rules.AddReferences(ctx, id, domain.FieldBooks, ids)
}

func (s *Service) RemoveBooks(ctx context.Context, id string, ids []string) (*domain.Project, error) {
	return s.rules.RemoveReferences(ctx, id, domain.FieldBooks, ids)
}

func (s *Service) AddChildren(ctx context.Context, id string, ids []string) (*domain.Project, error) {
	return s.rules.AddReferences(ctx, id, domain.FieldChildren, ids)
}

func (s *Service) RemoveChildren(ctx context.Context, id string, ids []string) (*domain.Project, error) {
	return s.rules.RemoveReferences(ctx, id, domain.FieldChildren, ids)
}

func (s *Service) Users(ctx context.Context, id string) ([]domain.User, error) {
	p, err := s.store.Projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.users(ctx, p)
}

func (s *Service) Books(ctx context.Context, id string) ([]domain.Book, error) {
	p, err := s.store.Projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.books(ctx, p)
}

func (s *Service) Children(ctx context.Context, id string) ([]domain.ChildProfile, error) {
	p, err := s.store.Projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.children(ctx, p)
}

func (s *Service) users(ctx context.Context, p *domain.Project) ([]domain.User, error) {
	if len(p.Animateurs) == 0 {
		return []domain.User{}, nil
	}
	items, err := s.store.Users.ListUsers(ctx, storage.UserFilter{IDs: p.Animateurs})
	if err != nil {
		return nil, err
	}
	return inOrder(p.Animateurs, items, func(u domain.User) string { return u.ID }), nil
}

func (s *Service) books(ctx context.Context, p *domain.Project) ([]domain.Book, error) {
	if len(p.Books) == 0 {
		return []domain.Book{}, nil
	}
	items, err := s.store.Books.ListBooks(ctx, storage.BookFilter{IDs: p.Books})
	if err != nil {
		return nil, err
	}
	return inOrder(p.Books, items, func(b domain.Book) string { return b.ID }), nil
}

func (s *Service) children(ctx context.Context, p *domain.Project) ([]domain.ChildProfile, error) {
	if len(p.Children) == 0 {
		return []domain.ChildProfile{}, nil
	}
	items, err := s.store.Children.ListChildren(ctx, storage.ChildFilter{IDs: p.Children})
	if err != nil {
		return nil, err
	}
	return inOrder(p.Children, items, func(c domain.ChildProfile) string { return c.ID }), nil
}

// inOrder arranges items in the order of ids, dropping ids with no match.
func inOrder[T any](ids []string, items []T, key func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[key(it)] = it
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

func (s *Service) checkParent(ctx context.Context, self, parent string) error {
	if parent == "" {
		return nil
	}
	if parent == self {
		return domain.Invalid("projet", "a project cannot be its own parent")
	}
	if _, err := s.store.Projects.GetProject(ctx, parent); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("projet", fmt.Sprintf("unknown project %q", parent))
		}
		return err
	}
	return nil
}
