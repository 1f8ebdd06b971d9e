// Package children manages child profiles.
package children

import (
	"context"
	"strings"
	"time"

	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.Invalid("dateNaissance", "must be a date (YYYY-MM-DD)")
}

// Input carries profile fields. On create every required field must be set;
// on update nil fields are left as they are. hasLoan is never taken from
// input: it follows the child's loans.
type Input struct {
	Nom             *string
	Prenom          *string
	DateNaissance   *string
	ClasseSuivie    *string
	NoteObservation *string
	Photo           *string
	Status          *string
	ParentID        *string
}

type Service struct {
	children storage.ChildStore
	rules    *consistency.Rules
	log      *logger.Logger
}

func NewService(st storage.Store, rules *consistency.Rules, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{children: st.Children, rules: rules, log: log.With("service", "children")}
}

func (s *Service) List(ctx context.Context, hasLoan *bool) ([]domain.ChildProfile, error) {
	return s.children.ListChildren(ctx, storage.ChildFilter{HasLoan: hasLoan})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ChildProfile, error) {
	return s.children.GetChild(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.ChildProfile, error) {
	c := &domain.ChildProfile{Status: domain.ChildStatusPossible}
	required := []struct {
		field string
		v     *string
	}{
		{"nom", in.Nom},
		{"prenom", in.Prenom},
		{"dateNaissance", in.DateNaissance},
		{"classeSuivie", in.ClasseSuivie},
	}
	for _, r := range required {
		if r.v == nil || strings.TrimSpace(*r.v) == "" {
			return nil, domain.Invalid(r.field, "is required")
		}
	}
	if err := apply(c, in); err != nil {
		return nil, err
	}
	if err := s.children.CreateChild(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("child profile created", "child_id", c.ID)
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.ChildProfile, error) {
	c, err := s.children.GetChild(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(c, in); err != nil {
		return nil, err
	}
	if err := s.children.UpdateChild(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the profile, then drops it from every project and deletes
// its loans.
func (s *Service) Delete(ctx context.Context, id string) (*domain.ChildProfile, error) {
	c, err := s.children.DeleteChild(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("child profile deleted", "child_id", id)

	if err := s.rules.OnChildDeleted(ctx, id); err != nil {
		return c, s.rules.Inconsistent(ctx, consistency.OpChildDeleted, "child profile", id, err)
	}
	return c, nil
}

func apply(c *domain.ChildProfile, in Input) error {
	set := func(dst *string, v *string, field string, required bool) error {
		if v == nil {
			return nil
		}
		val := strings.TrimSpace(*v)
		if required && val == "" {
			return domain.Invalid(field, "must not be empty")
		}
		*dst = val
		return nil
	}

	if err := set(&c.Nom, in.Nom, "nom", true); err != nil {
		return err
	}
	if err := set(&c.Prenom, in.Prenom, "prenom", true); err != nil {
		return err
	}
	if err := set(&c.ClasseSuivie, in.ClasseSuivie, "classeSuivie", true); err != nil {
		return err
	}
	if err := set(&c.Status, in.Status, "status", true); err != nil {
		return err
	}
	_ = set(&c.NoteObservation, in.NoteObservation, "noteObservation", false)
	_ = set(&c.Photo, in.Photo, "photo", false)

	if in.DateNaissance != nil {
		d, err := ParseDate(*in.DateNaissance)
		if err != nil {
			return err
		}
		c.DateNaissance = d
	}
	if in.ParentID != nil {
		c.ParentID = domain.StrPtr(strings.TrimSpace(*in.ParentID))
	}
	return nil
}
