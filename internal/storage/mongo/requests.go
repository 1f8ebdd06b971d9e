package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) GetAccessRequest(ctx context.Context, id string) (*domain.AccessRequest, error) {
	return findOne[domain.AccessRequest](ctx, s.coll(requestsColl), id, "access request")
}

func (s *Store) ListAccessRequests(ctx context.Context, f storage.AccessRequestFilter) ([]domain.AccessRequest, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Email != "" {
		filter["email"] = f.Email
	}
	return findAll[domain.AccessRequest](ctx, s.coll(requestsColl), filter, "access requests")
}

func (s *Store) CreateAccessRequest(ctx context.Context, r *domain.AccessRequest) error {
	if r.ID == "" {
		r.ID = storage.NewID()
	}
	if r.Status == "" {
		r.Status = domain.RequestPending
	}
	r.CreatedAt = now()
	r.UpdatedAt = r.CreatedAt
	_, err := s.coll(requestsColl).InsertOne(ctx, r)
	return mapErr(err, "access request", r.ID)
}

func (s *Store) DecideAccessRequest(ctx context.Context, id string, status domain.RequestStatus, userID string) (*domain.AccessRequest, error) {
	at := now()
	set := bson.M{"status": string(status), "decidedAt": at, "updatedAt": at}
	if userID != "" {
		set["userId"] = userID
	}
	filter := bson.M{"_id": id, "status": string(domain.RequestPending)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var r domain.AccessRequest
	err := s.coll(requestsColl).FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&r)
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, mapErr(err, "access request", id)
	}

	cur, err := s.GetAccessRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, domain.Invalid("status", fmt.Sprintf("access request already %s", cur.Status))
}
