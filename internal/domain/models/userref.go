// internal/domain/models/userref.go
package models

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DemoAdminTag identifies the synthetic demo administrator principal.
const DemoAdminTag = "demo-admin"

// ErrBadUserRef is returned when a user reference is neither a known
// synthetic tag nor a valid ObjectID.
var ErrBadUserRef = errors.New("user reference must be an ObjectID or a known synthetic tag")

// UserRef identifies a principal: either a real user record or a synthetic
// account (e.g. the demo administrator) that has no backing document.
// Resolve it once at the request boundary; engine code works with
// Principal and never string-matches ids.
type UserRef struct {
	id  primitive.ObjectID
	tag string
}

// RealUser returns a reference to a stored user.
func RealUser(id primitive.ObjectID) UserRef { return UserRef{id: id} }

// SyntheticUser returns a reference to a synthetic principal.
func SyntheticUser(tag string) UserRef { return UserRef{tag: tag} }

// ParseUserRef resolves a raw session id.
func ParseUserRef(raw string) (UserRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == DemoAdminTag {
		return SyntheticUser(raw), nil
	}
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return UserRef{}, ErrBadUserRef
	}
	return RealUser(oid), nil
}

// IsSynthetic reports whether the reference has no backing user record.
func (u UserRef) IsSynthetic() bool { return u.tag != "" }

// ID returns the ObjectID and true for real users.
func (u UserRef) ID() (primitive.ObjectID, bool) {
	if u.IsSynthetic() {
		return primitive.NilObjectID, false
	}
	return u.id, true
}

// Tag returns the synthetic tag ("" for real users).
func (u UserRef) Tag() string { return u.tag }

func (u UserRef) String() string {
	if u.IsSynthetic() {
		return u.tag
	}
	return u.id.Hex()
}

// Principal is the acting user supplied by the identity collaborator.
type Principal struct {
	Ref  UserRef
	Role Role
}

// IsTopAdmin reports whether the principal bypasses hierarchy checks.
func (p Principal) IsTopAdmin() bool {
	return p.Role.IsTopAdministrative()
}

// UserID returns the principal's user id, or NilObjectID for synthetic principals.
func (p Principal) UserID() primitive.ObjectID {
	id, _ := p.Ref.ID()
	return id
}
