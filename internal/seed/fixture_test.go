package seed

import (
	"context"
	"testing"

	"github.com/asso-lecture/asso-backend/internal/books"
	"github.com/asso-lecture/asso-backend/internal/children"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/loans"
	"github.com/asso-lecture/asso-backend/internal/projects"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/asso-lecture/asso-backend/internal/storage/memory"
	"github.com/asso-lecture/asso-backend/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
users:
  - {key: anne, nom: Dupont, prenom: Anne, email: anne@example.org, role: referent}
  - {key: marc, nom: Martin, prenom: Marc, email: marc@example.org}
books:
  - {key: prince, title: Le Petit Prince, author: Saint-Exupery}
  - {key: matilda, title: Matilda}
children:
  - key: lea
    nom: Durand
    prenom: Lea
    dateNaissance: 2016-03-01
    classeSuivie: CE1
projects:
  - key: lecture
    nom: Lecture
    annee: 2025
    animateurs: [anne, marc]
    books: [prince, matilda]
    children: [lea]
  - {key: atelier, nom: Atelier, annee: 2025, parent: lecture}
loans:
  - {book: prince, child: lea, returnDate: 2025-07-01}
`

func services(st storage.Store) Services {
	rules := consistency.New(st)
	return Services{
		Users:    users.NewService(st, rules, nil),
		Books:    books.NewService(st, rules, nil),
		Children: children.NewService(st, rules, nil),
		Projects: projects.NewService(st, rules, nil),
		Loans:    loans.NewService(st, rules, nil),
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	f, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	sum, err := Apply(ctx, f, services(mem.Storage()), nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 2, Books: 2, Children: 1, Projects: 2, Loans: 1}, sum)

	ps, err := mem.ListProjects(ctx, storage.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, ps, 2)
	lecture, atelier := ps[0], ps[1]
	assert.Len(t, lecture.Animateurs, 2)
	assert.Len(t, lecture.Books, 2)
	assert.Equal(t, lecture.ID, domain.StrVal(atelier.Projet))

	us, err := mem.ListUsers(ctx, storage.UserFilter{ProjectID: lecture.ID})
	require.NoError(t, err)
	assert.Len(t, us, 2, "animateurs point back at their project")

	kids, err := mem.ListChildren(ctx, storage.ChildFilter{})
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.True(t, kids[0].HasLoan)
	assert.Equal(t, "2016-03-01", kids[0].DateNaissance.Format("2006-01-02"))
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown animateur",
			yaml: "projects:\n  - {key: p, nom: P, annee: 2025, animateurs: [ghost]}\n",
			want: `unknown user key "ghost"`,
		},
		{
			name: "key of the wrong kind",
			yaml: "books:\n  - {key: x, title: X}\nprojects:\n  - {key: p, nom: P, annee: 2025, children: [x]}\n",
			want: `unknown child key "x"`,
		},
		{
			name: "duplicate key",
			yaml: "books:\n  - {key: x, title: X}\n  - {key: x, title: Y}\n",
			want: `duplicate fixture key "x"`,
		},
		{
			name: "invalid entry",
			yaml: "books:\n  - {key: x}\n",
			want: "seed book",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = Apply(context.Background(), f, services(memory.New().Storage()), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("users: {not: [a list"))
	assert.Error(t, err)
}
