package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
)

type RequestInput struct {
	Nom    string
	Prenom string
	Email  string
	Note   string
}

// ApproveInput sets up the account created on approval. An empty role
// defaults to simple.
type ApproveInput struct {
	Role   domain.Role
	Projet string
}

// RequestService handles access requests from people without an account.
// Approval goes through Service.Create so the new user gets the same
// validation and project bookkeeping as a user created by an admin.
type RequestService struct {
	requests storage.AccessRequestStore
	users    storage.UserStore
	accounts *Service
	log      *logger.Logger
}

func NewRequestService(st storage.Store, accounts *Service, log *logger.Logger) *RequestService {
	if log == nil {
		log = logger.Nop()
	}
	return &RequestService{
		requests: st.Requests,
		users:    st.Users,
		accounts: accounts,
		log:      log.With("service", "access_requests"),
	}
}

// Submit records a pending request. An address that already has an account
// or a pending request is refused.
func (s *RequestService) Submit(ctx context.Context, in RequestInput) (*domain.AccessRequest, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	r := &domain.AccessRequest{
		Nom:    strings.TrimSpace(in.Nom),
		Prenom: strings.TrimSpace(in.Prenom),
		Email:  email,
		Note:   strings.TrimSpace(in.Note),
		Status: domain.RequestPending,
	}
	if r.Nom == "" {
		return nil, domain.Invalid("nom", "is required")
	}
	if r.Prenom == "" {
		return nil, domain.Invalid("prenom", "is required")
	}

	existing, err := s.users.ListUsers(ctx, storage.UserFilter{Email: email})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.Invalid("email", "an account already exists for this address")
	}
	pending, err := s.requests.ListAccessRequests(ctx, storage.AccessRequestFilter{Status: domain.RequestPending, Email: email})
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return nil, domain.Invalid("email", "a request for this address is already pending")
	}

	if err := s.requests.CreateAccessRequest(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("access requested", "request_id", r.ID)
	return r, nil
}

// List returns the requests with the given status, or all of them when
// status is empty.
func (s *RequestService) List(ctx context.Context, status domain.RequestStatus) ([]domain.AccessRequest, error) {
	switch status {
	case "", domain.RequestPending, domain.RequestApproved, domain.RequestRejected:
	default:
		return nil, domain.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.requests.ListAccessRequests(ctx, storage.AccessRequestFilter{Status: status})
}

// Approve creates the user for a pending request and marks the request
// approved. An InconsistencyError from the account creation is returned
// with both results, the user exists either way.
func (s *RequestService) Approve(ctx context.Context, id string, in ApproveInput) (*domain.AccessRequest, *domain.User, error) {
	r, err := s.requests.GetAccessRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r.Status != domain.RequestPending {
		return nil, nil, domain.Invalid("status", fmt.Sprintf("access request already %s", r.Status))
	}

	u, err := s.accounts.Create(ctx, CreateInput{
		Nom:    r.Nom,
		Prenom: r.Prenom,
		Email:  r.Email,
		Role:   in.Role,
		Projet: in.Projet,
	})
	if err != nil && !errors.Is(err, domain.ErrInconsistency) {
		return nil, nil, err
	}
	createErr := err

	decided, err := s.requests.DecideAccessRequest(ctx, id, domain.RequestApproved, u.ID)
	if err != nil {
		s.log.Error("user created but request not marked approved", "request_id", id, "user_id", u.ID, "error", err)
		return nil, u, fmt.Errorf("mark request %q approved: %w", id, err)
	}
	s.log.Info("access request approved", "request_id", id, "user_id", u.ID, "role", u.Role)
	return decided, u, createErr
}

func (s *RequestService) Reject(ctx context.Context, id string) (*domain.AccessRequest, error) {
	r, err := s.requests.DecideAccessRequest(ctx, id, domain.RequestRejected, "")
	if err != nil {
		return nil, err
	}
	s.log.Info("access request rejected", "request_id", id)
	return r, nil
}
