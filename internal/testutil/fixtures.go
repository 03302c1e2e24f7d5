package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user reporting to parent (nil for the top).
func (f *Fixtures) CreateUser(ctx context.Context, fullName string, role models.Role, parent *primitive.ObjectID, region models.Region) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:                  primitive.NewObjectID(),
		FullName:            fullName,
		FullNameCI:          text.Fold(fullName),
		Email:               strings.ToLower(strings.ReplaceAll(fullName, " ", ".")) + "." + primitive.NewObjectID().Hex()[18:] + "@test.com",
		Role:                role,
		Status:              models.UserStatusActive,
		ParentCoordinatorID: parent,
		Region:              region,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateChain inserts one user per role, each reporting to the previous one,
// and returns them top first.
func (f *Fixtures) CreateChain(ctx context.Context, roles ...models.Role) []models.User {
	f.t.Helper()

	out := make([]models.User, 0, len(roles))
	var parent *primitive.ObjectID
	for _, r := range roles {
		u := f.CreateUser(ctx, "User "+string(r), r, parent, models.Region{})
		id := u.ID
		parent = &id
		out = append(out, u)
	}
	return out
}

// CreateTarget inserts an active donation target for assignee covering
// the month around now.
func (f *Fixtures) CreateTarget(ctx context.Context, assignee primitive.ObjectID, value float64) models.Target {
	f.t.Helper()

	now := time.Now().UTC()
	t := models.Target{
		ID:           primitive.NewObjectID(),
		Type:         models.TargetDonationCollection,
		AssignedTo:   assignee,
		TargetValue:  value,
		Status:       models.TargetPending,
		IsActive:     true,
		StartDate:    now.AddDate(0, 0, -15),
		EndDate:      now.AddDate(0, 0, 15),
		Subdivisions: []primitive.ObjectID{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("targets").InsertOne(ctx, t); err != nil {
		f.t.Fatalf("failed to create test target: %v", err)
	}
	return t
}
