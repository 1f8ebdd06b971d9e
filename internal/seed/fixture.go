// Package seed loads a YAML fixture of users, books, children, projects and
// loans and creates them through the feature services, so the consistency
// rules run exactly as they do for API calls.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asso-lecture/asso-backend/internal/books"
	"github.com/asso-lecture/asso-backend/internal/children"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/loans"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/projects"
	"github.com/asso-lecture/asso-backend/internal/users"
)

// Fixture entries are addressed by key; projects and loans refer to other
// entries by those keys, never by stored ids.
type Fixture struct {
	Users    []User    `yaml:"users"`
	Books    []Book    `yaml:"books"`
	Children []Child   `yaml:"children"`
	Projects []Project `yaml:"projects"`
	Loans    []Loan    `yaml:"loans"`
}

type User struct {
	Key    string      `yaml:"key"`
	Nom    string      `yaml:"nom"`
	Prenom string      `yaml:"prenom"`
	Email  string      `yaml:"email"`
	Role   domain.Role `yaml:"role"`
}

type Book struct {
	Key    string `yaml:"key"`
	Title  string `yaml:"title"`
	Author string `yaml:"author,omitempty"`
}

type Child struct {
	Key           string    `yaml:"key"`
	Nom           string    `yaml:"nom"`
	Prenom        string    `yaml:"prenom"`
	DateNaissance time.Time `yaml:"dateNaissance"`
	ClasseSuivie  string    `yaml:"classeSuivie"`
	Status        string    `yaml:"status,omitempty"`
}

type Project struct {
	Key        string   `yaml:"key"`
	Nom        string   `yaml:"nom"`
	Annee      int      `yaml:"annee"`
	Parent     string   `yaml:"parent,omitempty"`
	Animateurs []string `yaml:"animateurs,omitempty"`
	Books      []string `yaml:"books,omitempty"`
	Children   []string `yaml:"children,omitempty"`
}

type Loan struct {
	Book       string    `yaml:"book"`
	Child      string    `yaml:"child"`
	ReturnDate time.Time `yaml:"returnDate"`
}

func Parse(b []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func LoadFile(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(b)
}

type Services struct {
	Users    *users.Service
	Books    *books.Service
	Children *children.Service
	Projects *projects.Service
	Loans    *loans.Service
}

type Summary struct {
	Users, Books, Children, Projects, Loans int
	Inconsistencies                         int
}

type seeder struct {
	svc  Services
	log  *logger.Logger
	ids  map[string]string
	sum  Summary
	kind map[string]string
}

// Apply creates every entry of f in dependency order and stops at the first
// hard error. Inconsistencies are counted and logged but do not stop it.
func Apply(ctx context.Context, f *Fixture, svc Services, log *logger.Logger) (Summary, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &seeder{svc: svc, log: log.With("component", "seed"), ids: map[string]string{}, kind: map[string]string{}}
	steps := []func(context.Context, *Fixture) error{s.users, s.books, s.children, s.projects, s.loans}
	for _, step := range steps {
		if err := step(ctx, f); err != nil {
			return s.sum, err
		}
	}
	return s.sum, nil
}

func (s *seeder) remember(kind, key, id string) error {
	if key == "" {
		return nil
	}
	if _, ok := s.ids[key]; ok {
		return fmt.Errorf("duplicate fixture key %q", key)
	}
	s.ids[key] = id
	s.kind[key] = kind
	return nil
}

func (s *seeder) resolve(kind, key string) (string, error) {
	id, ok := s.ids[key]
	if !ok || s.kind[key] != kind {
		return "", fmt.Errorf("unknown %s key %q", kind, key)
	}
	return id, nil
}

func (s *seeder) resolveAll(kind string, keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		id, err := s.resolve(kind, k)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// check turns an inconsistency into a logged warning and keeps other
// errors.
func (s *seeder) check(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInconsistency) {
		s.sum.Inconsistencies++
		s.log.Warn("seeded with inconsistency", "entry", what, "error", err)
		return nil
	}
	return fmt.Errorf("seed %s: %w", what, err)
}

func (s *seeder) users(ctx context.Context, f *Fixture) error {
	for _, u := range f.Users {
		created, err := s.svc.Users.Create(ctx, users.CreateInput{Nom: u.Nom, Prenom: u.Prenom, Email: u.Email, Role: u.Role})
		if err := s.check("user "+u.Email, err); err != nil {
			return err
		}
		if err := s.remember("user", u.Key, created.ID); err != nil {
			return err
		}
		s.sum.Users++
	}
	return nil
}

func (s *seeder) books(ctx context.Context, f *Fixture) error {
	for _, b := range f.Books {
		created, err := s.svc.Books.Create(ctx, books.Input{Title: &b.Title, Author: &b.Author})
		if err := s.check("book "+b.Title, err); err != nil {
			return err
		}
		if err := s.remember("book", b.Key, created.ID); err != nil {
			return err
		}
		s.sum.Books++
	}
	return nil
}

func (s *seeder) children(ctx context.Context, f *Fixture) error {
	for _, c := range f.Children {
		born := c.DateNaissance.Format("2006-01-02")
		in := children.Input{Nom: &c.Nom, Prenom: &c.Prenom, DateNaissance: &born, ClasseSuivie: &c.ClasseSuivie}
		if c.Status != "" {
			in.Status = &c.Status
		}
		created, err := s.svc.Children.Create(ctx, in)
		if err := s.check("child "+c.Prenom, err); err != nil {
			return err
		}
		if err := s.remember("child", c.Key, created.ID); err != nil {
			return err
		}
		s.sum.Children++
	}
	return nil
}

func (s *seeder) projects(ctx context.Context, f *Fixture) error {
	for _, p := range f.Projects {
		in := projects.CreateInput{Nom: p.Nom, Annee: p.Annee}
		var err error
		if in.Animateurs, err = s.resolveAll("user", p.Animateurs); err != nil {
			return err
		}
		if in.Books, err = s.resolveAll("book", p.Books); err != nil {
			return err
		}
		if in.Children, err = s.resolveAll("child", p.Children); err != nil {
			return err
		}
		if p.Parent != "" {
			if in.Projet, err = s.resolve("project", p.Parent); err != nil {
				return err
			}
		}
		created, err := s.svc.Projects.Create(ctx, in)
		if err := s.check("project "+p.Nom, err); err != nil {
			return err
		}
		if err := s.remember("project", p.Key, created.ID); err != nil {
			return err
		}
		s.sum.Projects++
	}
	return nil
}

func (s *seeder) loans(ctx context.Context, f *Fixture) error {
	for _, l := range f.Loans {
		bookID, err := s.resolve("book", l.Book)
		if err != nil {
			return err
		}
		childID, err := s.resolve("child", l.Child)
		if err != nil {
			return err
		}
		_, err = s.svc.Loans.Create(ctx, loans.CreateInput{Book: bookID, ChildID: childID, ReturnDate: l.ReturnDate})
		if err := s.check("loan "+l.Book+"/"+l.Child, err); err != nil {
			return err
		}
		s.sum.Loans++
	}
	return nil
}
