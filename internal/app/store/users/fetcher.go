package userstore

import (
	"context"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher so a session always carries the
// user's current role, not the one they signed in with.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser returns nil if the user is missing, disabled, or the lookup
// fails.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u struct {
		FullName string      `bson:"full_name"`
		Email    string      `bson:"email"`
		Role     models.Role `bson:"role"`
		Status   string      `bson:"status"`
	}
	proj := options.FindOne().SetProjection(bson.M{"full_name": 1, "email": 1, "role": 1, "status": 1})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		return nil
	}
	if u.Status == models.UserStatusDisabled {
		return nil
	}
	return &auth.SessionUser{
		ID:      userID,
		Name:    u.FullName,
		LoginID: u.Email,
		Role:    string(u.Role),
	}
}
