//go:build property
// +build property

package consistency

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/asso-lecture/asso-backend/internal/storage/memory"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const poolSize = 6

// seedWorld builds projects P0..P2 and users u0..u5, with user i initially
// on project assign[i] (or none when assign[i] >= 3).
func seedWorld(ctx context.Context, assign []int) *memory.Store {
	mem := memory.New()
	animateurs := make(map[string][]string)
	for i := 0; i < poolSize; i++ {
		uid := fmt.Sprintf("u%d", i)
		var projet string
		if i < len(assign) && assign[i] < 3 {
			projet = fmt.Sprintf("P%d", assign[i])
			animateurs[projet] = append(animateurs[projet], uid)
		}
		_ = mem.CreateUser(ctx, &domain.User{ID: uid, Email: uid + "@example.org", Projet: domain.StrPtr(projet)})
	}
	for p := 0; p < 3; p++ {
		pid := fmt.Sprintf("P%d", p)
		_ = mem.CreateProject(ctx, &domain.Project{ID: pid, Animateurs: animateurs[pid]})
	}
	return mem
}

func userIDs(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, fmt.Sprintf("u%d", i))
	}
	return out
}

func sortedDedupe(ids []string) []string {
	out := storage.Dedupe(ids)
	sort.Strings(out)
	return out
}

// TestAnimateurRulesProperties tests the back-reference invariants over random worlds
func TestAnimateurRulesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	assignGen := gen.SliceOfN(poolSize, gen.IntRange(0, 4))
	setGen := gen.SliceOf(gen.IntRange(0, poolSize-1))

	properties.Property("users pointing at the project are exactly the new set", prop.ForAll(
		func(assign, set []int) bool {
			ctx := context.Background()
			mem := seedWorld(ctx, assign)
			ids := userIDs(set)
			if err := New(mem.Storage()).OnProjectAnimateursChanged(ctx, "P0", ids); err != nil {
				return false
			}
			users, err := mem.ListUsers(ctx, storage.UserFilter{ProjectID: "P0"})
			if err != nil {
				return false
			}
			got := make([]string, 0, len(users))
			for _, u := range users {
				got = append(got, u.ID)
			}
			return reflect.DeepEqual(sortedDedupe(got), sortedDedupe(ids))
		},
		assignGen, setGen,
	))

	properties.Property("no other project keeps a member of the new set", prop.ForAll(
		func(assign, set []int) bool {
			ctx := context.Background()
			mem := seedWorld(ctx, assign)
			ids := userIDs(set)
			if err := New(mem.Storage()).OnProjectAnimateursChanged(ctx, "P0", ids); err != nil {
				return false
			}
			for _, pid := range []string{"P1", "P2"} {
				p, err := mem.GetProject(ctx, pid)
				if err != nil {
					return false
				}
				for _, uid := range ids {
					if storage.Contains(p.Animateurs, uid) {
						return false
					}
				}
			}
			return true
		},
		assignGen, setGen,
	))

	properties.Property("applying the rule twice equals applying it once", prop.ForAll(
		func(assign, set []int) bool {
			ctx := context.Background()
			mem := seedWorld(ctx, assign)
			rules := New(mem.Storage())
			ids := userIDs(set)
			if err := rules.OnProjectAnimateursChanged(ctx, "P0", ids); err != nil {
				return false
			}
			first, _ := mem.ListUsers(ctx, storage.UserFilter{})
			if err := rules.OnProjectAnimateursChanged(ctx, "P0", ids); err != nil {
				return false
			}
			second, _ := mem.ListUsers(ctx, storage.UserFilter{})
			return reflect.DeepEqual(first, second)
		},
		assignGen, setGen,
	))

	properties.TestingRun(t)
}

// TestReferenceSetProperties tests that project reference fields behave as sets
func TestReferenceSetProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	idGen := gen.SliceOf(gen.IntRange(1, 4))
	bookIDs := func(idx []int) []string {
		out := make([]string, 0, len(idx))
		for _, i := range idx {
			out = append(out, fmt.Sprintf("b%d", i))
		}
		return out
	}

	properties.Property("add then remove yields set difference of the union", prop.ForAll(
		func(initialIdx, addIdx, removeIdx []int) bool {
			initial, add, remove := bookIDs(initialIdx), bookIDs(addIdx), bookIDs(removeIdx)
			ctx := context.Background()
			mem := memory.New()
			if err := mem.CreateProject(ctx, &domain.Project{ID: "P", Books: initial}); err != nil {
				return false
			}
			rules := New(mem.Storage())
			if _, err := rules.AddReferences(ctx, "P", domain.FieldBooks, add); err != nil {
				return false
			}
			p, err := rules.RemoveReferences(ctx, "P", domain.FieldBooks, remove)
			if err != nil {
				return false
			}
			want := sortedDedupe(storage.Subtract(storage.Union(initial, add), remove))
			return reflect.DeepEqual(sortedDedupe(p.Books), want)
		},
		idGen, idGen, idGen,
	))

	properties.TestingRun(t)
}
