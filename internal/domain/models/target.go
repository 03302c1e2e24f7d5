// internal/domain/models/target.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TargetStatus is the stored lifecycle state of a Target.
// OVERDUE is never stored; it is derived at read time.
type TargetStatus string

const (
	TargetPending    TargetStatus = "PENDING"
	TargetInProgress TargetStatus = "IN_PROGRESS"
	TargetCompleted  TargetStatus = "COMPLETED"
	TargetOverdue    TargetStatus = "OVERDUE"
	TargetCancelled  TargetStatus = "CANCELLED"
)

// IsActive reports whether the status counts toward the
// one-active-target-per-user rule.
func (s TargetStatus) IsActive() bool {
	return s == TargetPending || s == TargetInProgress
}

// IsTerminal reports whether the status is COMPLETED or CANCELLED.
func (s TargetStatus) IsTerminal() bool {
	return s == TargetCompleted || s == TargetCancelled
}

// TargetType is the kind of quota. A user holds at most one active target per type.
type TargetType string

const (
	TargetDonationCollection   TargetType = "DONATION_COLLECTION"
	TargetVolunteerRecruitment TargetType = "VOLUNTEER_RECRUITMENT"
	TargetMemberEnrollment     TargetType = "MEMBER_ENROLLMENT"
)

// ParseTargetType returns the type named by s, defaulting to donation collection.
func ParseTargetType(s string) (TargetType, bool) {
	switch TargetType(s) {
	case "":
		return TargetDonationCollection, true
	case TargetDonationCollection, TargetVolunteerRecruitment, TargetMemberEnrollment:
		return TargetType(s), true
	}
	return "", false
}

// Target is a fundraising quota assigned to one user for a time window.
type Target struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type       TargetType         `bson:"type" json:"type"`
	AssignedTo primitive.ObjectID `bson:"assigned_to" json:"assigned_to"`
	// AssignedBy is NilObjectID when a synthetic principal assigned the target.
	AssignedBy  primitive.ObjectID `bson:"assigned_by" json:"assigned_by"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	TargetValue        float64 `bson:"target_value" json:"target_value"`
	PersonalCollection float64 `bson:"personal_collection" json:"personal_collection"`
	TeamCollection     float64 `bson:"team_collection" json:"team_collection"`

	Status TargetStatus `bson:"status" json:"status"`
	// IsActive mirrors Status.IsActive() so a partial unique index can
	// enforce one active target per (assigned_to, type).
	IsActive bool `bson:"is_active" json:"-"`

	StartDate time.Time `bson:"start_date" json:"start_date"`
	EndDate   time.Time `bson:"end_date" json:"end_date"`

	ParentTargetID *primitive.ObjectID  `bson:"parent_target_id,omitempty" json:"parent_target_id,omitempty"`
	IsDivided      bool                 `bson:"is_divided" json:"is_divided"`
	Subdivisions   []primitive.ObjectID `bson:"subdivisions" json:"subdivisions"`

	// Region is copied from the assignee at creation for leaderboard filtering.
	Region Region `bson:"region" json:"region"`

	// Version is bumped on every write and checked on replace.
	Version int64 `bson:"version" json:"version"`

	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// TotalCollection is the personal plus team collection.
func (t Target) TotalCollection() float64 {
	return t.PersonalCollection + t.TeamCollection
}

// SubdividedValue is the sum of the values handed out to subdivisions.
// Callers pass the child targets; the parent only stores their ids.
func SubdividedValue(children []Target) float64 {
	var sum float64
	for _, c := range children {
		sum += c.TargetValue
	}
	return sum
}
