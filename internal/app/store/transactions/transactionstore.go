// internal/app/store/transactions/transactionstore.go
package transactionstore

import (
	"context"
	"errors"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists collection records. It implements ledger.Repository.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("transactions")}
}

func (s *Store) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, tx); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Transaction{}, apperr.Conflict("insert transaction", "reference %q already exists", tx.Reference)
		}
		return models.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Transaction, error) {
	var tx models.Transaction
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&tx); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Transaction{}, apperr.NotFound("get transaction", "transaction %s not found", id.Hex())
		}
		return models.Transaction{}, err
	}
	return tx, nil
}

// Decide moves a pending transaction to `to`. The status filter makes the
// write a compare-and-swap: only one reviewer can win.
func (s *Store) Decide(ctx context.Context, id primitive.ObjectID, to models.TransactionStatus, by *primitive.ObjectID, at time.Time, reason string) (models.Transaction, error) {
	set := bson.M{
		"status":      to,
		"verified_at": at,
		"updated_at":  at,
	}
	if by != nil {
		set["verified_by"] = *by
	}
	if reason != "" {
		set["rejection_reason"] = reason
	}

	var tx models.Transaction
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.TransactionPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&tx)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transaction{}, err
	}

	cur, getErr := s.Get(ctx, id)
	if getErr != nil {
		return models.Transaction{}, getErr
	}
	return models.Transaction{}, apperr.Conflict("decide transaction", "transaction is already %s", cur.Status)
}

// Reopen returns a verified transaction to pending.
func (s *Store) Reopen(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.TransactionVerified},
		bson.M{
			"$set":   bson.M{"status": models.TransactionPending, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"verified_by": "", "verified_at": ""},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.Conflict("reopen transaction", "transaction %s is not verified", id.Hex())
	}
	return nil
}

// Retarget rebinds a pending transaction to targetID; nil clears the binding.
func (s *Store) Retarget(ctx context.Context, id primitive.ObjectID, targetID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if targetID != nil {
		update["$set"].(bson.M)["target_id"] = *targetID
	} else {
		update["$unset"] = bson.M{"target_id": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": models.TransactionPending}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.Conflict("retarget transaction", "transaction %s is not pending", id.Hex())
	}
	return nil
}

// ListByUser returns userID's collections, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Transaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
