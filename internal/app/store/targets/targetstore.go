// internal/app/store/targets/targetstore.go
package targetstore

import (
	"context"
	"errors"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/leaderboard"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/txn"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store persists targets. It implements targeting.Repository,
// propagation.Targets and leaderboard.Source.
type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection("targets"), log: logger}
}

func notFound(op string, id primitive.ObjectID) error {
	return apperr.NotFound(op, "target %s not found", id.Hex())
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Target, error) {
	var t models.Target
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Target{}, notFound("get target", id)
		}
		return models.Target{}, err
	}
	return t, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Target, error) {
	var t models.Target
	if err := s.c.FindOne(ctx, filter, opts...).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Target, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Target
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Active returns the PENDING or IN_PROGRESS target of userID for typ, or nil.
func (s *Store) Active(ctx context.Context, userID primitive.ObjectID, typ models.TargetType) (*models.Target, error) {
	return s.findOne(ctx, bson.M{"assigned_to": userID, "type": typ, "is_active": true})
}

// Current returns the active target, else the latest-ending COMPLETED
// target whose window is still open at `at`, else nil.
func (s *Store) Current(ctx context.Context, userID primitive.ObjectID, typ models.TargetType, at time.Time) (*models.Target, error) {
	t, err := s.Active(ctx, userID, typ)
	if err != nil || t != nil {
		return t, err
	}
	return s.findOne(ctx, bson.M{
		"assigned_to": userID,
		"type":        typ,
		"status":      models.TargetCompleted,
		"end_date":    bson.M{"$gte": at},
	}, options.FindOne().SetSort(bson.D{{Key: "end_date", Value: -1}}))
}

// ForUsers returns the non-cancelled targets of typ held by userIDs whose
// window overlaps [from, to].
func (s *Store) ForUsers(ctx context.Context, userIDs []primitive.ObjectID, typ models.TargetType, from, to time.Time) ([]models.Target, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{
		"assigned_to": bson.M{"$in": userIDs},
		"type":        typ,
		"status":      bson.M{"$ne": models.TargetCancelled},
		"start_date":  bson.M{"$lte": to},
		"end_date":    bson.M{"$gte": from},
	}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// ListByUser returns every target of userID, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Target, error) {
	return s.find(ctx, bson.M{"assigned_to": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
}

// ListActive returns every active target of typ.
func (s *Store) ListActive(ctx context.Context, typ models.TargetType) ([]models.Target, error) {
	return s.find(ctx, bson.M{"type": typ, "is_active": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// Insert writes a new target. A second active target for the same user and
// type violates the partial unique index and yields KindConflict.
func (s *Store) Insert(ctx context.Context, t models.Target) (models.Target, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Subdivisions == nil {
		t.Subdivisions = []primitive.ObjectID{}
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Target{}, apperr.Conflict("insert target", "user already has an active %s target", t.Type)
		}
		return models.Target{}, err
	}
	return t, nil
}

// Replace writes t if the stored version equals t.Version and returns the
// stored copy with the bumped version.
func (s *Store) Replace(ctx context.Context, t models.Target) (models.Target, error) {
	expected := t.Version
	t.Version++
	if t.Subdivisions == nil {
		t.Subdivisions = []primitive.ObjectID{}
	}
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": t.ID, "version": expected}, t)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Target{}, apperr.Conflict("replace target", "user already has an active %s target", t.Type)
		}
		return models.Target{}, err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": t.ID})
		if err != nil {
			return models.Target{}, err
		}
		if n == 0 {
			return models.Target{}, notFound("replace target", t.ID)
		}
		return models.Target{}, apperr.ErrVersionConflict
	}
	return t, nil
}

// Subdivide replaces parent (version-checked) and inserts children in one
// transaction. Without transaction support a failed child insert is undone
// by deleting the inserted children and restoring the parent.
func (s *Store) Subdivide(ctx context.Context, parent models.Target, children []models.Target) ([]models.Target, error) {
	out := make([]models.Target, len(children))
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		before, err := s.Get(ctx, parent.ID)
		if err != nil {
			return err
		}
		saved, err := s.Replace(ctx, parent)
		if err != nil {
			return err
		}

		docs := make([]any, len(children))
		for i, c := range children {
			if c.ID.IsZero() {
				c.ID = primitive.NewObjectID()
			}
			if c.Subdivisions == nil {
				c.Subdivisions = []primitive.ObjectID{}
			}
			out[i] = c
			docs[i] = c
		}
		if _, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
			s.undoSubdivide(ctx, saved, before, out)
			if wafflemongo.IsDup(err) {
				return apperr.Conflict("subdivide target", "an assignee already has an active %s target", parent.Type)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) undoSubdivide(ctx context.Context, saved, before models.Target, children []models.Target) {
	ids := make([]primitive.ObjectID, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		s.log.Error("subdivide rollback: delete children failed",
			zap.String("target_id", saved.ID.Hex()), zap.Error(err))
	}
	before.Version = saved.Version + 1
	if _, err := s.c.ReplaceOne(ctx, bson.M{"_id": saved.ID, "version": saved.Version}, before); err != nil {
		s.log.Error("subdivide rollback: restore parent failed",
			zap.String("target_id", saved.ID.Hex()), zap.Error(err))
	}
}

type standingDoc struct {
	UserID primitive.ObjectID `bson:"_id"`
	Total  float64            `bson:"total"`
	Target float64            `bson:"target"`
	Name   string             `bson:"name"`
	Role   models.Role        `bson:"role"`
}

// Standings aggregates matching targets per assignee and joins the
// assignee's name and role.
func (s *Store) Standings(ctx context.Context, q leaderboard.Query) ([]leaderboard.Standing, error) {
	match := bson.M{"type": q.Type, "status": bson.M{"$in": q.Statuses}}
	if q.UserIDs != nil {
		match["assigned_to"] = bson.M{"$in": q.UserIDs}
	}
	if q.Region.State != "" {
		match["region.state"] = q.Region.State
	}
	if q.Region.Zone != "" {
		match["region.zone"] = q.Region.Zone
	}
	if q.Region.District != "" {
		match["region.district"] = q.Region.District
	}
	if q.Region.Block != "" {
		match["region.block"] = q.Region.Block
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$assigned_to",
			"total":  bson.M{"$sum": bson.M{"$add": bson.A{"$personal_collection", "$team_collection"}}},
			"target": bson.M{"$sum": "$target_value"},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$user", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"total":  1,
			"target": 1,
			"name":   "$user.full_name",
			"role":   "$user.role",
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []standingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]leaderboard.Standing, len(docs))
	for i, d := range docs {
		out[i] = leaderboard.Standing{
			UserID:         d.UserID,
			Name:           d.Name,
			Role:           d.Role,
			TotalCollected: d.Total,
			TargetAmount:   d.Target,
		}
	}
	return out, nil
}
