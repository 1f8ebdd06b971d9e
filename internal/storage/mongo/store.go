// Package mongo implements the entity store on MongoDB. Collection names
// match the document layout of the existing association database.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersColl    = "users"
	projectsColl = "projects"
	childrenColl = "childprofiles"
	booksColl    = "books"
	loansColl    = "bookloans"
	requestsColl = "accessrequests"
)

var (
	_ storage.UserStore    = (*Store)(nil)
	_ storage.ProjectStore = (*Store)(nil)
	_ storage.ChildStore   = (*Store)(nil)
	_ storage.BookStore    = (*Store)(nil)
	_ storage.LoanStore    = (*Store)(nil)

	_ storage.AccessRequestStore = (*Store)(nil)
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a client for uri, checks it with a ping and ensures the
// indexes the store relies on.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := map[string][]mongo.IndexModel{
		usersColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "projet", Value: 1}}},
		},
		projectsColl: {
			{Keys: bson.D{{Key: "animateurs", Value: 1}}},
			{Keys: bson.D{{Key: "books", Value: 1}}},
			{Keys: bson.D{{Key: "children", Value: 1}}},
		},
		loansColl: {
			{Keys: bson.D{{Key: "childId", Value: 1}}},
			{Keys: bson.D{{Key: "book", Value: 1}}},
		},
		requestsColl: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{
				Keys: bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": string(domain.RequestPending)}),
			},
		},
	}
	for coll, idx := range models {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Storage() storage.Store {
	return storage.Store{
		Users:    s,
		Projects: s,
		Children: s,
		Books:    s,
		Loans:    s,
		Requests: s,
		Ping: func(ctx context.Context) error {
			return s.client.Ping(ctx, nil)
		},
		Close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.client.Disconnect(ctx)
		},
	}
}

// Drop removes every collection of the store. Used by integration tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// now is truncated to the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func mapErr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.NotFound(entity, id)
	}
	if mongo.IsDuplicateKeyError(err) {
		return domain.Invalid("", fmt.Sprintf("duplicate %s", entity))
	}
	return fmt.Errorf("%s %q: %w", entity, id, err)
}

func byID(id string) bson.M {
	return bson.M{"_id": id}
}

func ascending() *options.FindOptionsBuilder {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, what string) ([]T, error) {
	cur, err := c.Find(ctx, filter, ascending())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	out := make([]T, 0, 16)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, c *mongo.Collection, id, entity string) (*T, error) {
	var v T
	if err := c.FindOne(ctx, byID(id)).Decode(&v); err != nil {
		return nil, mapErr(err, entity, id)
	}
	return &v, nil
}

func deleteOne[T any](ctx context.Context, c *mongo.Collection, id, entity string) (*T, error) {
	var v T
	if err := c.FindOneAndDelete(ctx, byID(id)).Decode(&v); err != nil {
		return nil, mapErr(err, entity, id)
	}
	return &v, nil
}

// updateOne sets every field of doc except _id and createdAt and returns the
// stored document. Optional keys omitted from the encoded doc are unset.
func updateOne[T any](ctx context.Context, c *mongo.Collection, id string, doc any, entity string, optional ...string) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", entity, err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("encode %s: %w", entity, err)
	}
	delete(set, "_id")
	delete(set, "createdAt")

	update := bson.M{"$set": set}
	unset := bson.M{}
	for _, key := range optional {
		if _, ok := set[key]; !ok {
			unset[key] = ""
		}
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var v T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := c.FindOneAndUpdate(ctx, byID(id), update, opts).Decode(&v); err != nil {
		return nil, mapErr(err, entity, id)
	}
	return &v, nil
}
