// Package users manages staff accounts and their project assignment.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

type CreateInput struct {
	Nom    string
	Prenom string
	Email  string
	Role   domain.Role
	Projet string
}

// UpdateInput holds the fields to change. Projet set to null detaches the
// user from its project.
type UpdateInput struct {
	Nom    *string
	Prenom *string
	Email  *string
	Role   *domain.Role
	Projet domain.NullableString
}

type Service struct {
	users    storage.UserStore
	projects storage.ProjectStore
	rules    *consistency.Rules
	log      *logger.Logger
}

func NewService(st storage.Store, rules *consistency.Rules, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{users: st.Users, projects: st.Projects, rules: rules, log: log.With("service", "users")}
}

func (s *Service) List(ctx context.Context, projectID string) ([]domain.User, error) {
	return s.users.ListUsers(ctx, storage.UserFilter{ProjectID: projectID})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetUser(ctx, id)
}

// Create registers an approved account. A given projet also adds the user
// to that project's animateurs.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = domain.RoleSimple
	}
	if !in.Role.Valid() {
		return nil, domain.Invalid("role", fmt.Sprintf("unknown role %q", in.Role))
	}
	projet := strings.TrimSpace(in.Projet)
	if err := s.checkProject(ctx, projet); err != nil {
		return nil, err
	}

	u := &domain.User{
		Nom:    strings.TrimSpace(in.Nom),
		Prenom: strings.TrimSpace(in.Prenom),
		Email:  email,
		Role:   in.Role,
		Projet: domain.StrPtr(projet),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user created", "user_id", u.ID, "role", u.Role)

	if projet != "" {
		if err := s.rules.OnUserProjectChanged(ctx, u.ID, "", projet); err != nil {
			return u, s.rules.Inconsistent(ctx, consistency.OpUserProjectChanged, "project", projet, err)
		}
	}
	return u, nil
}

// Update applies in. A changed projet is mirrored into the projects'
// animateurs.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	oldProjet := domain.StrVal(u.Projet)

	if in.Nom != nil {
		u.Nom = strings.TrimSpace(*in.Nom)
	}
	if in.Prenom != nil {
		u.Prenom = strings.TrimSpace(*in.Prenom)
	}
	if in.Email != nil {
		if u.Email, err = normalizeEmail(*in.Email); err != nil {
			return nil, err
		}
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, domain.Invalid("role", fmt.Sprintf("unknown role %q", *in.Role))
		}
		u.Role = *in.Role
	}
	newProjet := oldProjet
	if in.Projet.Set {
		newProjet = strings.TrimSpace(in.Projet.Val())
		if newProjet != oldProjet {
			if err := s.checkProject(ctx, newProjet); err != nil {
				return nil, err
			}
		}
		u.Projet = domain.StrPtr(newProjet)
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	if newProjet != oldProjet {
		s.log.Info("user project changed", "user_id", id, "from", oldProjet, "to", newProjet)
		if err := s.rules.OnUserProjectChanged(ctx, id, oldProjet, newProjet); err != nil {
			return u, s.rules.Inconsistent(ctx, consistency.OpUserProjectChanged, "project", newProjet, err)
		}
	}
	return u, nil
}

// Delete removes the account and drops it from every project's animateurs.
func (s *Service) Delete(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.DeleteUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("user deleted", "user_id", id)

	if err := s.rules.OnUserDeleted(ctx, id); err != nil {
		return u, s.rules.Inconsistent(ctx, consistency.OpUserDeleted, "project", id, err)
	}
	return u, nil
}

func (s *Service) checkProject(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.projects.GetProject(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("projet", fmt.Sprintf("unknown project %q", id))
		}
		return err
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.Invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.Invalid("email", "is not a valid address")
	}
	return email, nil
}
