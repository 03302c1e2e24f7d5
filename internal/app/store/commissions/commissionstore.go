// internal/app/store/commissions/commissionstore.go
package commissionstore

import (
	"context"
	"errors"
	"time"

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

// Store persists commission rows. It implements commission.Repository.
type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection("commission_logs"), log: logger}
}

// InsertMany writes the rows of one donation in a transaction. The unique
// (donation_id, sequence) index turns a second distribution into
// KindConflict. On a standalone server a racing writer may interleave rows,
// but both writers produce identical rows for every sequence.
func (s *Store) InsertMany(ctx context.Context, rows []models.CommissionLog) ([]models.CommissionLog, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]models.CommissionLog, len(rows))
	docs := make([]any, len(rows))
	for i, r := range rows {
		if r.ID.IsZero() {
			r.ID = primitive.NewObjectID()
		}
		out[i] = r
		docs[i] = r
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		_, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
		return err
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, apperr.Conflict("insert commissions", "commissions for donation %q already recorded", rows[0].DonationID)
		}
		return nil, err
	}
	return out, nil
}

func (s *Store) list(ctx context.Context, filter bson.M, sort bson.D) ([]models.CommissionLog, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.CommissionLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByDonation returns the rows of a donation ordered by sequence.
func (s *Store) ListByDonation(ctx context.Context, donationID string) ([]models.CommissionLog, error) {
	return s.list(ctx, bson.M{"donation_id": donationID}, bson.D{{Key: "sequence", Value: 1}})
}

// ListByUser returns userID's rows, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.CommissionLog, error) {
	return s.list(ctx, bson.M{"user_id": userID}, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.CommissionLog, error) {
	var r models.CommissionLog
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.CommissionLog{}, apperr.NotFound("get commission", "commission %s not found", id.Hex())
		}
		return models.CommissionLog{}, err
	}
	return r, nil
}

// Transition changes the status of row id if it is currently one of from.
// Amounts are never touched.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from []models.CommissionStatus, to models.CommissionStatus, at time.Time, reason string) (models.CommissionLog, error) {
	set := bson.M{"status": to, "updated_at": at}
	update := bson.M{"$set": set}
	if to == models.CommissionPaid {
		set["paid_at"] = at
		update["$unset"] = bson.M{"failure_reason": ""}
	}
	if reason != "" {
		set["failure_reason"] = reason
		delete(update, "$unset")
	}

	var r models.CommissionLog
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.CommissionLog{}, err
	}

	cur, getErr := s.Get(ctx, id)
	if getErr != nil {
		return models.CommissionLog{}, getErr
	}
	return models.CommissionLog{}, apperr.Conflict("update commission", "commission is %s", cur.Status)
}

// CancelDonation moves every PENDING or FAILED row of donationID to CANCELLED.
func (s *Store) CancelDonation(ctx context.Context, donationID string, at time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"donation_id": donationID,
			"status":      bson.M{"$in": []models.CommissionStatus{models.CommissionPending, models.CommissionFailed}},
		},
		bson.M{"$set": bson.M{"status": models.CommissionCancelled, "updated_at": at}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
