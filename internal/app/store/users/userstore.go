// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/normalize"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateEmail = apperr.Conflict("create user", "a user with this email already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a user. The parent, when set, must exist.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	const op = "create user"

	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Status = normalize.Status(u.Status)
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	if u.FullName == "" {
		return models.User{}, apperr.Validation(op, "full name is required")
	}
	role, ok := models.ParseRole(string(u.Role))
	if !ok {
		return models.User{}, apperr.Validation(op, "unknown role %q", u.Role)
	}
	u.Role = role

	if u.ParentCoordinatorID != nil {
		if u.ParentCoordinatorID.IsZero() {
			u.ParentCoordinatorID = nil
		} else if err := s.c.FindOne(ctx, bson.M{"_id": *u.ParentCoordinatorID}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return models.User{}, apperr.Validation(op, "parent coordinator %s does not exist", u.ParentCoordinatorID.Hex())
			}
			return models.User{}, err
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("get user", "user %s not found", id.Hex())
		}
		return nil, err
	}
	return &u, nil
}

type nodeDoc struct {
	ID       primitive.ObjectID  `bson:"_id"`
	FullName string              `bson:"full_name"`
	Role     models.Role         `bson:"role"`
	Region   models.Region       `bson:"region"`
	ParentID *primitive.ObjectID `bson:"parent_coordinator_id,omitempty"`
}

var nodeProjection = bson.M{"full_name": 1, "role": 1, "region": 1, "parent_coordinator_id": 1}

// GetNode implements hierarchy.UserSource.
func (s *Store) GetNode(ctx context.Context, id primitive.ObjectID) (hierarchy.Node, error) {
	var d nodeDoc
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(nodeProjection)).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return hierarchy.Node{}, apperr.NotFound("get user", "user %s not found", id.Hex())
		}
		return hierarchy.Node{}, err
	}
	return hierarchy.Node{ID: d.ID, Name: d.FullName, Role: d.Role, Region: d.Region, ParentID: d.ParentID}, nil
}

// ChildIDs implements hierarchy.UserSource. Ids are returned in creation order.
func (s *Store) ChildIDs(ctx context.Context, parentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"parent_coordinator_id": parentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []primitive.ObjectID
	for cur.Next(ctx) {
		var d struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.ID)
	}
	return out, cur.Err()
}
