package mongo

import (
	"context"
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Users

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return findOne[domain.User](ctx, s.coll(usersColl), id, "user")
}

func (s *Store) ListUsers(ctx context.Context, f storage.UserFilter) ([]domain.User, error) {
	filter := bson.M{}
	if len(f.IDs) > 0 {
		filter["_id"] = bson.M{"$in": storage.Dedupe(f.IDs)}
	}
	if f.ProjectID != "" {
		filter["projet"] = f.ProjectID
	}
	if f.Email != "" {
		filter["email"] = f.Email
	}
	return findAll[domain.User](ctx, s.coll(usersColl), filter, "users")
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = storage.NewID()
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	_, err := s.coll(usersColl).InsertOne(ctx, u)
	return mapErr(err, "user", u.ID)
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = now()
	stored, err := updateOne[domain.User](ctx, s.coll(usersColl), u.ID, u, "user")
	if err != nil {
		return err
	}
	u.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	return deleteOne[domain.User](ctx, s.coll(usersColl), id, "user")
}

func (s *Store) AssignProject(ctx context.Context, ids []string, projectID string) (int64, error) {
	filter := bson.M{
		"_id":    bson.M{"$in": storage.Dedupe(ids)},
		"projet": bson.M{"$ne": projectID},
	}
	update := bson.M{"$set": bson.M{"projet": projectID, "updatedAt": now()}}
	res, err := s.coll(usersColl).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("assign project %q: %w", projectID, err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) ClearProject(ctx context.Context, projectID string, keep []string) (int64, error) {
	filter := bson.M{
		"projet": projectID,
		"_id":    bson.M{"$nin": storage.Dedupe(keep)},
	}
	update := bson.M{"$set": bson.M{"projet": nil, "updatedAt": now()}}
	res, err := s.coll(usersColl).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("clear project %q: %w", projectID, err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) ClearUserProject(ctx context.Context, id, projectID string) (int64, error) {
	filter := bson.M{"_id": id, "projet": projectID}
	update := bson.M{"$set": bson.M{"projet": nil, "updatedAt": now()}}
	res, err := s.coll(usersColl).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("clear project of user %q: %w", id, err)
	}
	return res.ModifiedCount, nil
}

// Projects

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := findOne[domain.Project](ctx, s.coll(projectsColl), id, "project")
	if err != nil {
		return nil, err
	}
	normalizeProject(p)
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, f storage.ProjectFilter) ([]domain.Project, error) {
	filter := bson.M{}
	if len(f.IDs) > 0 {
		filter["_id"] = bson.M{"$in": storage.Dedupe(f.IDs)}
	}
	if f.AnimateurID != "" {
		filter[string(domain.FieldAnimateurs)] = f.AnimateurID
	}
	if f.BookID != "" {
		filter[string(domain.FieldBooks)] = f.BookID
	}
	if f.ChildID != "" {
		filter[string(domain.FieldChildren)] = f.ChildID
	}
	out, err := findAll[domain.Project](ctx, s.coll(projectsColl), filter, "projects")
	if err != nil {
		return nil, err
	}
	for i := range out {
		normalizeProject(&out[i])
	}
	return out, nil
}

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = storage.NewID()
	}
	normalizeProject(p)
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	_, err := s.coll(projectsColl).InsertOne(ctx, p)
	return mapErr(err, "project", p.ID)
}

func (s *Store) UpdateProject(ctx context.Context, p *domain.Project) error {
	normalizeProject(p)
	p.UpdatedAt = now()
	stored, err := updateOne[domain.Project](ctx, s.coll(projectsColl), p.ID, p, "project", "description")
	if err != nil {
		return err
	}
	p.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := deleteOne[domain.Project](ctx, s.coll(projectsColl), id, "project")
	if err != nil {
		return nil, err
	}
	normalizeProject(p)
	return p, nil
}

func (s *Store) PullReference(ctx context.Context, field domain.RefField, id, exceptProjectID string) (int64, error) {
	switch field {
	case domain.FieldAnimateurs, domain.FieldBooks, domain.FieldChildren:
	default:
		return 0, domain.Invalid("field", fmt.Sprintf("unknown reference field %q", field))
	}
	key := string(field)
	filter := bson.M{key: id}
	if exceptProjectID != "" {
		filter["_id"] = bson.M{"$ne": exceptProjectID}
	}
	update := bson.M{
		"$pull": bson.M{key: id},
		"$set":  bson.M{"updatedAt": now()},
	}
	res, err := s.coll(projectsColl).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("pull %s %q: %w", key, id, err)
	}
	return res.ModifiedCount, nil
}

func normalizeProject(p *domain.Project) {
	p.Animateurs = storage.Dedupe(p.Animateurs)
	p.Books = storage.Dedupe(p.Books)
	p.Children = storage.Dedupe(p.Children)
}

// Children

func (s *Store) GetChild(ctx context.Context, id string) (*domain.ChildProfile, error) {
	return findOne[domain.ChildProfile](ctx, s.coll(childrenColl), id, "child profile")
}

func (s *Store) ListChildren(ctx context.Context, f storage.ChildFilter) ([]domain.ChildProfile, error) {
	filter := bson.M{}
	if len(f.IDs) > 0 {
		filter["_id"] = bson.M{"$in": storage.Dedupe(f.IDs)}
	}
	if f.HasLoan != nil {
		filter["hasLoan"] = *f.HasLoan
	}
	return findAll[domain.ChildProfile](ctx, s.coll(childrenColl), filter, "child profiles")
}

func (s *Store) CreateChild(ctx context.Context, c *domain.ChildProfile) error {
	if c.ID == "" {
		c.ID = storage.NewID()
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	_, err := s.coll(childrenColl).InsertOne(ctx, c)
	return mapErr(err, "child profile", c.ID)
}

func (s *Store) UpdateChild(ctx context.Context, c *domain.ChildProfile) error {
	c.UpdatedAt = now()
	stored, err := updateOne[domain.ChildProfile](ctx, s.coll(childrenColl), c.ID, c, "child profile",
		"noteObservation", "photo", "parentId")
	if err != nil {
		return err
	}
	c.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) DeleteChild(ctx context.Context, id string) (*domain.ChildProfile, error) {
	return deleteOne[domain.ChildProfile](ctx, s.coll(childrenColl), id, "child profile")
}

func (s *Store) SetHasLoan(ctx context.Context, id string, hasLoan bool) (*domain.ChildProfile, error) {
	return updateOne[domain.ChildProfile](ctx, s.coll(childrenColl), id,
		bson.M{"hasLoan": hasLoan, "updatedAt": now()}, "child profile")
}

// Books

func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return findOne[domain.Book](ctx, s.coll(booksColl), id, "book")
}

func (s *Store) ListBooks(ctx context.Context, f storage.BookFilter) ([]domain.Book, error) {
	filter := bson.M{}
	if len(f.IDs) > 0 {
		filter["_id"] = bson.M{"$in": storage.Dedupe(f.IDs)}
	}
	return findAll[domain.Book](ctx, s.coll(booksColl), filter, "books")
}

func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	if b.ID == "" {
		b.ID = storage.NewID()
	}
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	_, err := s.coll(booksColl).InsertOne(ctx, b)
	return mapErr(err, "book", b.ID)
}

func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) error {
	b.UpdatedAt = now()
	stored, err := updateOne[domain.Book](ctx, s.coll(booksColl), b.ID, b, "book", "author", "photo")
	if err != nil {
		return err
	}
	b.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) (*domain.Book, error) {
	return deleteOne[domain.Book](ctx, s.coll(booksColl), id, "book")
}

// Loans

func (s *Store) GetLoan(ctx context.Context, id string) (*domain.BookLoan, error) {
	return findOne[domain.BookLoan](ctx, s.coll(loansColl), id, "book loan")
}

func (s *Store) ListLoans(ctx context.Context, f storage.LoanFilter) ([]domain.BookLoan, error) {
	filter := bson.M{}
	if f.ChildID != "" {
		filter["childId"] = f.ChildID
	}
	if f.BookID != "" {
		filter["book"] = f.BookID
	}
	return findAll[domain.BookLoan](ctx, s.coll(loansColl), filter, "book loans")
}

func (s *Store) CreateLoan(ctx context.Context, l *domain.BookLoan) error {
	if l.ID == "" {
		l.ID = storage.NewID()
	}
	l.CreatedAt = now()
	l.UpdatedAt = l.CreatedAt
	if l.LoanDate.IsZero() {
		l.LoanDate = l.CreatedAt
	}
	_, err := s.coll(loansColl).InsertOne(ctx, l)
	return mapErr(err, "book loan", l.ID)
}

func (s *Store) UpdateLoan(ctx context.Context, l *domain.BookLoan) error {
	l.UpdatedAt = now()
	stored, err := updateOne[domain.BookLoan](ctx, s.coll(loansColl), l.ID, l, "book loan")
	if err != nil {
		return err
	}
	l.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) DeleteLoan(ctx context.Context, id string) (*domain.BookLoan, error) {
	return deleteOne[domain.BookLoan](ctx, s.coll(loansColl), id, "book loan")
}

func (s *Store) DeleteLoansByChild(ctx context.Context, childID string) (int64, error) {
	res, err := s.coll(loansColl).DeleteMany(ctx, bson.M{"childId": childID})
	if err != nil {
		return 0, fmt.Errorf("delete loans of child %q: %w", childID, err)
	}
	return res.DeletedCount, nil
}
