// internal/domain/models/commission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionStatus is the payout state of a commission row.
type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "PENDING"
	CommissionPaid      CommissionStatus = "PAID"
	CommissionFailed    CommissionStatus = "FAILED"
	CommissionCancelled CommissionStatus = "CANCELLED"
)

// Hierarchy level descriptors, relative to the credited user.
const (
	LevelSelf     = "self"
	LevelParent   = "parent"
	LevelAncestor = "ancestor"
	LevelTop      = "top"
)

// CommissionLog is one ancestor's share of one donation. Rows are
// immutable apart from status and payment fields.
type CommissionLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DonationID string             `bson:"donation_id" json:"donation_id"`
	// Sequence is the row's position outward from the credited user (0 = self).
	Sequence             int                `bson:"sequence" json:"sequence"`
	UserID               primitive.ObjectID `bson:"user_id" json:"user_id"`
	UserRole             Role               `bson:"user_role" json:"user_role"`
	DonationAmount       float64            `bson:"donation_amount" json:"donation_amount"`
	CommissionAmount     float64            `bson:"commission_amount" json:"commission_amount"`
	CommissionPercentage float64            `bson:"commission_percentage" json:"commission_percentage"`
	HierarchyLevel       string             `bson:"hierarchy_level" json:"hierarchy_level"`
	Status               CommissionStatus   `bson:"status" json:"status"`

	PaidAt        *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	FailureReason string     `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// Donation is the confirmed payment triple supplied by the intake collaborator.
type Donation struct {
	ID               string             `json:"donation_id"`
	AttributedUserID primitive.ObjectID `json:"attributed_user_id"`
	Amount           float64            `json:"amount"`
}
