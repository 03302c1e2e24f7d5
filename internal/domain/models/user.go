// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a coordinator or volunteer account.
//
// NOTE:
//   - ParentCoordinatorID is a weak back-reference to the direct superior.
//     It is never an ownership edge and the graph it forms is not guaranteed
//     to be acyclic; walk it through the hierarchy package only.
type User struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName            string              `bson:"full_name" json:"full_name"`
	FullNameCI          string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email               string              `bson:"email" json:"email"`
	Role                Role                `bson:"role" json:"role"`
	Status              string              `bson:"status,omitempty" json:"status,omitempty"`
	ParentCoordinatorID *primitive.ObjectID `bson:"parent_coordinator_id,omitempty" json:"parent_coordinator_id,omitempty"`
	Region              Region              `bson:"region" json:"region"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User statuses.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Region is the geographic placement of a user. Fields below the user's
// own level are empty (a state coordinator has no zone).
type Region struct {
	State    string `bson:"state,omitempty" json:"state,omitempty"`
	Zone     string `bson:"zone,omitempty" json:"zone,omitempty"`
	District string `bson:"district,omitempty" json:"district,omitempty"`
	Block    string `bson:"block,omitempty" json:"block,omitempty"`
}

// IsZero reports whether no region attribute is set.
func (r Region) IsZero() bool {
	return r.State == "" && r.Zone == "" && r.District == "" && r.Block == ""
}

// Matches reports whether r satisfies every non-empty attribute of filter.
func (r Region) Matches(filter Region) bool {
	if filter.State != "" && filter.State != r.State {
		return false
	}
	if filter.Zone != "" && filter.Zone != r.Zone {
		return false
	}
	if filter.District != "" && filter.District != r.District {
		return false
	}
	if filter.Block != "" && filter.Block != r.Block {
		return false
	}
	return true
}
