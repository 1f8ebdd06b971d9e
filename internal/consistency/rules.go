// Package consistency keeps denormalized back-references in step with the
// documents they mirror: User.projet with Project.animateurs, and
// ChildProfile.hasLoan with the child's book loans.
//
// Every rule is a sequence of independent store writes. Nothing is
// transactional, so a failure part way leaves earlier writes in place; the
// caller reports it through Inconsistent and Repairer fixes it later.
package consistency

import (
	"context"
	"errors"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/metrics"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/platform/requestid"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

// Operation names, used for metrics labels and inconsistency reports.
const (
	OpProjectAnimateursChanged = "OnProjectAnimateursChanged"
	OpProjectDeleted           = "OnProjectDeleted"
	OpBookLoanCreated          = "OnBookLoanCreated"
	OpBookLoanDeleted          = "OnBookLoanDeleted"
	OpBookLoanReassigned       = "OnBookLoanReassigned"
	OpAddReferences            = "AddReferences"
	OpRemoveReferences         = "RemoveReferences"
	OpUserProjectChanged       = "OnUserProjectChanged"
	OpUserDeleted              = "OnUserDeleted"
	OpChildDeleted             = "OnChildDeleted"
	OpBookDeleted              = "OnBookDeleted"
)

type Rules struct {
	users    storage.UserStore
	projects storage.ProjectStore
	children storage.ChildStore
	loans    storage.LoanStore

	log          *logger.Logger
	metrics      *metrics.Metrics
	reporter     Reporter
	recheckLoans bool
}

type Option func(*Rules)

func WithLogger(l *logger.Logger) Option {
	return func(r *Rules) { r.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Rules) { r.metrics = m }
}

func WithReporter(rep Reporter) Option {
	return func(r *Rules) { r.reporter = rep }
}

// WithRecheckRemainingLoans makes OnBookLoanDeleted keep hasLoan set while
// the child still has other loans. Off by default.
func WithRecheckRemainingLoans(on bool) Option {
	return func(r *Rules) { r.recheckLoans = on }
}

func New(st storage.Store, opts ...Option) *Rules {
	r := &Rules{
		users:    st.Users,
		projects: st.Projects,
		children: st.Children,
		loans:    st.Loans,
		log:      logger.Nop(),
		reporter: NewMemoryReporter(defaultReportCap),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "consistency")
	return r
}

func (r *Rules) Reporter() Reporter { return r.reporter }

func (r *Rules) observe(ctx context.Context, op string, err error) error {
	r.metrics.ObserveRule(op, err)
	if err != nil {
		r.log.Debug("rule failed", "op", op, "error", err, "request_id", requestid.From(ctx))
	}
	return err
}

// OnProjectAnimateursChanged makes the users in ids, and only them, point at
// the project. Users that still point at it but are not in ids are cleared,
// and each user in ids is dropped from the animateurs of every other
// project. The project document itself is written by the caller.
func (r *Rules) OnProjectAnimateursChanged(ctx context.Context, projectID string, ids []string) error {
	if _, err := r.projects.GetProject(ctx, projectID); err != nil {
		return r.observe(ctx, OpProjectAnimateursChanged, err)
	}
	set := storage.Dedupe(ids)

	if _, err := r.users.ClearProject(ctx, projectID, set); err != nil {
		return r.observe(ctx, OpProjectAnimateursChanged, fmt.Errorf("clear stale users: %w", err))
	}
	for _, uid := range set {
		if _, err := r.projects.PullReference(ctx, domain.FieldAnimateurs, uid, projectID); err != nil {
			return r.observe(ctx, OpProjectAnimateursChanged, fmt.Errorf("release user %q from other projects: %w", uid, err))
		}
	}
	if len(set) > 0 {
		if _, err := r.users.AssignProject(ctx, set, projectID); err != nil {
			return r.observe(ctx, OpProjectAnimateursChanged, fmt.Errorf("assign users: %w", err))
		}
	}
	return r.observe(ctx, OpProjectAnimateursChanged, nil)
}

// OnProjectDeleted clears projet on every user referencing the project. It
// runs before the project document is removed.
func (r *Rules) OnProjectDeleted(ctx context.Context, projectID string) error {
	_, err := r.users.ClearProject(ctx, projectID, nil)
	if err != nil {
		err = fmt.Errorf("clear users of project %q: %w", projectID, err)
	}
	return r.observe(ctx, OpProjectDeleted, err)
}

// OnBookLoanCreated flags the child as having a loan.
func (r *Rules) OnBookLoanCreated(ctx context.Context, childID string) (*domain.ChildProfile, error) {
	c, err := r.children.SetHasLoan(ctx, childID, true)
	return c, r.observe(ctx, OpBookLoanCreated, err)
}

// OnBookLoanDeleted clears the child's hasLoan flag. Without the recheck
// option the flag is cleared even when other loans for the child remain.
func (r *Rules) OnBookLoanDeleted(ctx context.Context, loan domain.BookLoan) (*domain.ChildProfile, error) {
	hasLoan := false
	if r.recheckLoans {
		remaining, err := r.loans.ListLoans(ctx, storage.LoanFilter{ChildID: loan.ChildID})
		if err != nil {
			return nil, r.observe(ctx, OpBookLoanDeleted, fmt.Errorf("list remaining loans: %w", err))
		}
		for _, l := range remaining {
			if l.ID != loan.ID {
				hasLoan = true
				break
			}
		}
	}
	c, err := r.children.SetHasLoan(ctx, loan.ChildID, hasLoan)
	return c, r.observe(ctx, OpBookLoanDeleted, err)
}

// OnBookLoanReassigned moves the hasLoan flag when a loan changes child.
func (r *Rules) OnBookLoanReassigned(ctx context.Context, before, after domain.BookLoan) error {
	if before.ChildID == after.ChildID {
		return nil
	}
	var errs []error
	if _, err := r.OnBookLoanCreated(ctx, after.ChildID); err != nil {
		errs = append(errs, fmt.Errorf("flag new child: %w", err))
	}
	if _, err := r.OnBookLoanDeleted(ctx, before); err != nil {
		errs = append(errs, fmt.Errorf("clear previous child: %w", err))
	}
	return r.observe(ctx, OpBookLoanReassigned, errors.Join(errs...))
}

func checkSetField(field domain.RefField) error {
	switch field {
	case domain.FieldBooks, domain.FieldChildren:
		return nil
	}
	return domain.Invalid("field", fmt.Sprintf("must be books or children, got %q", field))
}

// AddReferences unions ids into the project's field. Adding ids already
// present changes nothing.
func (r *Rules) AddReferences(ctx context.Context, projectID string, field domain.RefField, ids []string) (*domain.Project, error) {
	p, err := r.mutateSet(ctx, projectID, field, func(cur []string) []string {
		return storage.Union(cur, ids)
	})
	return p, r.observe(ctx, OpAddReferences, err)
}

// RemoveReferences subtracts ids from the project's field. Ids not present
// are ignored.
func (r *Rules) RemoveReferences(ctx context.Context, projectID string, field domain.RefField, ids []string) (*domain.Project, error) {
	p, err := r.mutateSet(ctx, projectID, field, func(cur []string) []string {
		return storage.Subtract(cur, ids)
	})
	return p, r.observe(ctx, OpRemoveReferences, err)
}

func (r *Rules) mutateSet(ctx context.Context, projectID string, field domain.RefField, fn func([]string) []string) (*domain.Project, error) {
	if err := checkSetField(field); err != nil {
		return nil, err
	}
	p, err := r.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cur := storage.Dedupe(p.Refs(field))
	next := fn(cur)
	if sameSet(cur, next) {
		return p, nil
	}
	p.SetRefs(field, next)
	if err := r.projects.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range b {
		if !storage.Contains(a, id) {
			return false
		}
	}
	return true
}

// OnUserProjectChanged mirrors a direct change of a user's projet into the
// projects' animateurs: the user leaves every other project and joins the
// new one. newProjectID may be empty.
func (r *Rules) OnUserProjectChanged(ctx context.Context, userID, oldProjectID, newProjectID string) error {
	if oldProjectID == newProjectID {
		return nil
	}
	if _, err := r.projects.PullReference(ctx, domain.FieldAnimateurs, userID, newProjectID); err != nil {
		return r.observe(ctx, OpUserProjectChanged, fmt.Errorf("leave previous projects: %w", err))
	}
	if newProjectID == "" {
		return r.observe(ctx, OpUserProjectChanged, nil)
	}

	p, err := r.projects.GetProject(ctx, newProjectID)
	if err != nil {
		return r.observe(ctx, OpUserProjectChanged, err)
	}
	if !storage.Contains(p.Animateurs, userID) {
		p.Animateurs = storage.Union(p.Animateurs, []string{userID})
		if err := r.projects.UpdateProject(ctx, p); err != nil {
			return r.observe(ctx, OpUserProjectChanged, fmt.Errorf("join project: %w", err))
		}
	}
	return r.observe(ctx, OpUserProjectChanged, nil)
}

// OnUserDeleted removes the user from every project's animateurs.
func (r *Rules) OnUserDeleted(ctx context.Context, userID string) error {
	_, err := r.projects.PullReference(ctx, domain.FieldAnimateurs, userID, "")
	return r.observe(ctx, OpUserDeleted, err)
}

// OnChildDeleted removes the child from every project and deletes its loans.
func (r *Rules) OnChildDeleted(ctx context.Context, childID string) error {
	var errs []error
	if _, err := r.projects.PullReference(ctx, domain.FieldChildren, childID, ""); err != nil {
		errs = append(errs, fmt.Errorf("pull child from projects: %w", err))
	}
	if _, err := r.loans.DeleteLoansByChild(ctx, childID); err != nil {
		errs = append(errs, fmt.Errorf("delete loans: %w", err))
	}
	return r.observe(ctx, OpChildDeleted, errors.Join(errs...))
}

// OnBookDeleted removes the book from every project's books.
func (r *Rules) OnBookDeleted(ctx context.Context, bookID string) error {
	_, err := r.projects.PullReference(ctx, domain.FieldBooks, bookID, "")
	return r.observe(ctx, OpBookDeleted, err)
}

// Inconsistent records that op left entity/id out of step after its primary
// write succeeded: it logs, counts and reports, then returns the error to
// attach to the response.
func (r *Rules) Inconsistent(ctx context.Context, op, entity, id string, cause error) *domain.InconsistencyError {
	ierr := &domain.InconsistencyError{Op: op, Entity: entity, ID: id, Err: cause}
	rid := requestid.From(ctx)

	r.metrics.IncInconsistency(op)
	r.log.Warn("inconsistent state", "op", op, "entity", entity, "id", id, "error", cause, "request_id", rid)

	inc := Inconsistency{Op: op, Entity: entity, EntityID: id, Error: cause.Error(), RequestID: rid}
	if err := r.reporter.Report(context.WithoutCancel(ctx), inc); err != nil {
		r.log.Error("report inconsistency", "op", op, "error", err)
	}
	return ierr
}
