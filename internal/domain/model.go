package domain

import (
	"slices"
	"time"
)

// Role is the flat permission tier carried by every user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReferent Role = "referent"
	RoleSimple   Role = "simple"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReferent, RoleSimple:
		return true
	default:
		return false
	}
}

// Default child status values. Status stays a free-form string.
const (
	ChildStatusPossible  = "possible"
	ChildStatusRestreint = "restreint"
)

// User is a staff account. Projet is the denormalized back-reference to the
// project whose animateurs list contains this user.
type User struct {
	ID        string    `json:"_id" bson:"_id"`
	Nom       string    `json:"nom" bson:"nom"`
	Prenom    string    `json:"prenom" bson:"prenom"`
	Email     string    `json:"email" bson:"email"`
	Role      Role      `json:"role" bson:"role"`
	Projet    *string   `json:"projet" bson:"projet"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Project groups staff, books and children for one year.
type Project struct {
	ID          string    `json:"_id" bson:"_id"`
	Nom         string    `json:"nom" bson:"nom"`
	Annee       int       `json:"annee" bson:"annee"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Image       *string   `json:"image" bson:"image"`
	Animateurs  []string  `json:"animateurs" bson:"animateurs"`
	Books       []string  `json:"books" bson:"books"`
	Children    []string  `json:"children" bson:"children"`
	Projet      *string   `json:"projet" bson:"projet"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ChildProfile is a child participant. HasLoan mirrors the existence of a
// book loan for the child and is maintained by the consistency rules.
type ChildProfile struct {
	ID              string    `json:"_id" bson:"_id"`
	Nom             string    `json:"nom" bson:"nom"`
	Prenom          string    `json:"prenom" bson:"prenom"`
	DateNaissance   time.Time `json:"dateNaissance" bson:"dateNaissance"`
	ClasseSuivie    string    `json:"classeSuivie" bson:"classeSuivie"`
	NoteObservation string    `json:"noteObservation,omitempty" bson:"noteObservation,omitempty"`
	Photo           string    `json:"photo,omitempty" bson:"photo,omitempty"`
	Status          string    `json:"status" bson:"status"`
	HasLoan         bool      `json:"hasLoan" bson:"hasLoan"`
	ParentID        *string   `json:"parentId,omitempty" bson:"parentId,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Book is a catalog entry.
type Book struct {
	ID        string    `json:"_id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Author    string    `json:"author,omitempty" bson:"author,omitempty"`
	Photo     string    `json:"photo,omitempty" bson:"photo,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// BookLoan links a book to a child until it is returned (deleted).
type BookLoan struct {
	ID         string    `json:"_id" bson:"_id"`
	Book       string    `json:"book" bson:"book"`
	ChildID    string    `json:"childId" bson:"childId"`
	LoanDate   time.Time `json:"loanDate" bson:"loanDate"`
	ReturnDate time.Time `json:"returnDate" bson:"returnDate"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// RequestStatus tracks an access request through review.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// AccessRequest is an account asked for through the public form. Approving
// it creates the User and records its id.
type AccessRequest struct {
	ID        string        `json:"_id" bson:"_id"`
	Nom       string        `json:"nom" bson:"nom"`
	Prenom    string        `json:"prenom" bson:"prenom"`
	Email     string        `json:"email" bson:"email"`
	Note      string        `json:"note,omitempty" bson:"note,omitempty"`
	Status    RequestStatus `json:"status" bson:"status"`
	UserID    *string       `json:"userId,omitempty" bson:"userId,omitempty"`
	DecidedAt *time.Time    `json:"decidedAt,omitempty" bson:"decidedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a deep copy.
func (r AccessRequest) Clone() AccessRequest {
	r.UserID = cloneStr(r.UserID)
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		r.DecidedAt = &t
	}
	return r
}

// RefField names a set-valued reference field of a Project.
type RefField string

const (
	FieldAnimateurs RefField = "animateurs"
	FieldBooks      RefField = "books"
	FieldChildren   RefField = "children"
)

// Refs returns the set stored under f, or nil for an unknown field.
func (p *Project) Refs(f RefField) []string {
	switch f {
	case FieldAnimateurs:
		return p.Animateurs
	case FieldBooks:
		return p.Books
	case FieldChildren:
		return p.Children
	}
	return nil
}

// SetRefs replaces the set stored under f. Unknown fields are ignored.
func (p *Project) SetRefs(f RefField, ids []string) {
	switch f {
	case FieldAnimateurs:
		p.Animateurs = ids
	case FieldBooks:
		p.Books = ids
	case FieldChildren:
		p.Children = ids
	}
}

// Clone returns a deep copy.
func (p Project) Clone() Project {
	p.Animateurs = slices.Clone(p.Animateurs)
	p.Books = slices.Clone(p.Books)
	p.Children = slices.Clone(p.Children)
	p.Image = cloneStr(p.Image)
	p.Projet = cloneStr(p.Projet)
	return p
}

// Clone returns a deep copy.
func (u User) Clone() User {
	u.Projet = cloneStr(u.Projet)
	return u
}

// Clone returns a deep copy.
func (c ChildProfile) Clone() ChildProfile {
	c.ParentID = cloneStr(c.ParentID)
	return c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal dereferences s, returning "" for nil.
func StrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
