package consistency

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/metrics"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

// UserConflict is a user listed in the animateurs of more than one project.
type UserConflict struct {
	UserID     string   `json:"userId"`
	ProjectIDs []string `json:"projectIds"`
}

type RepairReport struct {
	StartedAt       time.Time      `json:"startedAt"`
	FinishedAt      time.Time      `json:"finishedAt"`
	ChildrenFlagged int            `json:"childrenFlagged"`
	ChildrenCleared int            `json:"childrenCleared"`
	UsersAssigned   int            `json:"usersAssigned"`
	UsersCleared    int            `json:"usersCleared"`
	Conflicts       []UserConflict `json:"conflicts"`
	Errors          []string       `json:"errors,omitempty"`
}

func (r RepairReport) fixes() map[string]int {
	return map[string]int{
		"child_has_loan_set":     r.ChildrenFlagged,
		"child_has_loan_cleared": r.ChildrenCleared,
		"user_projet_set":        r.UsersAssigned,
		"user_projet_cleared":    r.UsersCleared,
	}
}

// Repairer recomputes denormalized fields from the documents they mirror:
// hasLoan from the loans collection, projet from project animateurs.
type Repairer struct {
	store   storage.Store
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewRepairer(st storage.Store, log *logger.Logger, m *metrics.Metrics) *Repairer {
	if log == nil {
		log = logger.Nop()
	}
	return &Repairer{store: st, log: log.With("component", "repair"), metrics: m}
}

// Run performs one full pass. Per-document write failures are collected in
// the report and do not stop the pass; the returned error joins them.
func (rp *Repairer) Run(ctx context.Context) (RepairReport, error) {
	rep := RepairReport{StartedAt: time.Now().UTC(), Conflicts: []UserConflict{}}
	var errs []error

	if err := rp.repairLoans(ctx, &rep); err != nil {
		errs = append(errs, err)
	}
	if err := rp.repairProjects(ctx, &rep); err != nil {
		errs = append(errs, err)
	}

	rep.FinishedAt = time.Now().UTC()
	for _, err := range errs {
		rep.Errors = append(rep.Errors, err.Error())
	}
	err := errors.Join(errs...)
	rp.metrics.ObserveRepair(err, rep.fixes())
	rp.log.Info("repair finished",
		"children_flagged", rep.ChildrenFlagged,
		"children_cleared", rep.ChildrenCleared,
		"users_assigned", rep.UsersAssigned,
		"users_cleared", rep.UsersCleared,
		"conflicts", len(rep.Conflicts),
		"errors", len(rep.Errors),
	)
	return rep, err
}

func (rp *Repairer) repairLoans(ctx context.Context, rep *RepairReport) error {
	loans, err := rp.store.Loans.ListLoans(ctx, storage.LoanFilter{})
	if err != nil {
		return fmt.Errorf("list loans: %w", err)
	}
	withLoan := make(map[string]bool, len(loans))
	for _, l := range loans {
		withLoan[l.ChildID] = true
	}

	children, err := rp.store.Children.ListChildren(ctx, storage.ChildFilter{})
	if err != nil {
		return fmt.Errorf("list child profiles: %w", err)
	}

	var errs []error
	for _, c := range children {
		want := withLoan[c.ID]
		if c.HasLoan == want {
			continue
		}
		if _, err := rp.store.Children.SetHasLoan(ctx, c.ID, want); err != nil {
			errs = append(errs, fmt.Errorf("child %q: %w", c.ID, err))
			continue
		}
		if want {
			rep.ChildrenFlagged++
		} else {
			rep.ChildrenCleared++
		}
	}
	return errors.Join(errs...)
}

func (rp *Repairer) repairProjects(ctx context.Context, rep *RepairReport) error {
	projects, err := rp.store.Projects.ListProjects(ctx, storage.ProjectFilter{})
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	claims := make(map[string][]string)
	for _, p := range projects {
		for _, uid := range storage.Dedupe(p.Animateurs) {
			claims[uid] = append(claims[uid], p.ID)
		}
	}

	users, err := rp.store.Users.ListUsers(ctx, storage.UserFilter{})
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	for _, u := range users {
		owners := claims[u.ID]
		current := domain.StrVal(u.Projet)

		switch len(owners) {
		case 0:
			if current == "" {
				continue
			}
			if _, err := rp.store.Users.ClearUserProject(ctx, u.ID, current); err != nil {
				errs = append(errs, fmt.Errorf("user %q: %w", u.ID, err))
				continue
			}
			rep.UsersCleared++
		case 1:
			if current == owners[0] {
				continue
			}
			if _, err := rp.store.Users.AssignProject(ctx, []string{u.ID}, owners[0]); err != nil {
				errs = append(errs, fmt.Errorf("user %q: %w", u.ID, err))
				continue
			}
			rep.UsersAssigned++
		default:
			ids := append([]string(nil), owners...)
			sort.Strings(ids)
			rep.Conflicts = append(rep.Conflicts, UserConflict{UserID: u.ID, ProjectIDs: ids})
			rp.log.Warn("user claimed by several projects", "user_id", u.ID, "projects", ids)
		}
	}
	return errors.Join(errs...)
}
