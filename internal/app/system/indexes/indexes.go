// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureTargets(ctx, db); err != nil {
		problems = append(problems, "targets: "+err.Error())
	}
	if err := ensureTransactions(ctx, db); err != nil {
		problems = append(problems, "transactions: "+err.Error())
	}
	if err := ensureCommissionLogs(ctx, db); err != nil {
		problems = append(problems, "commission_logs: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func partialSig(p any) string {
	d, ok := p.(bson.D)
	if !ok || len(d) == 0 {
		return ""
	}
	return keySig(d)
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// duplicateHelp names a query that finds the rows blocking a unique index.
func duplicateHelp(coll, sig string) string {
	switch {
	case coll == "targets" && strings.Contains(sig, "assigned_to:1"):
		return " (more than one active target per user and type). Example finder:\n" +
			`db.targets.aggregate([{ $match: { is_active: true } }, { $group: { _id: { u: "$assigned_to", t: "$type" }, n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`
	case coll == "users" && strings.Contains(sig, "email:1"):
		return " (duplicates exist on users.email). Example finder:\n" +
			`db.users.aggregate([{ $group: { _id: "$email", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`
	}
	return ""
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		var desiredPartial string
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
			desiredPartial = partialSig(m.Options.PartialFilterExpression)
		}
		desiredSig := keySig(m.Keys.(bson.D))
		unique := desiredUnique != nil && *desiredUnique

		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique))

		create := func(stage string) bool {
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				log.Warn("index ensure failed", zap.String("stage", stage), zap.Error(err))
				if isDuplicateKeyErr(err) && unique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index%s",
						coll.Name(), desiredName, duplicateHelp(coll.Name(), desiredSig)))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				return false
			}
			log.Info("index ensured", zap.String("stage", stage), zap.Duration("took", time.Since(start)))
			return true
		}

		existing := map[string]existingIndex{} // sig -> index
		if cur, err := coll.Indexes().List(ctx); err == nil {
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					log.Warn("failed to decode existing index", zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
			cur.Close(ctx)
		}

		ex, ok := existing[desiredSig]
		if !ok {
			create("create")
			continue
		}

		sameOpts := sameBoolPtr(desiredUnique, ex.Unique) && desiredPartial == partialSig(ex.Partial)
		if sameOpts && (desiredName == "" || ex.Name == desiredName) {
			log.Debug("reusing existing index", zap.Duration("took", time.Since(start)))
			continue
		}

		// Options or name differ: drop and recreate.
		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
			continue
		}
		create("recreate")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collections                                                                */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Direct reports, in insertion order.
		{
			Keys:    bson.D{{Key: "parent_coordinator_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_parent_id"),
		},
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_fullnameci_id"),
		},
	})
}

func ensureTargets(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("targets")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one PENDING or IN_PROGRESS target per user and type.
		{
			Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "is_active", Value: true}}).
				SetName("uniq_targets_active_user_type"),
		},
		// Window lookups for one user (Current, ForUsers).
		{
			Keys: bson.D{
				{Key: "assigned_to", Value: 1},
				{Key: "type", Value: 1},
				{Key: "start_date", Value: 1},
				{Key: "end_date", Value: 1},
			},
			Options: options.Index().SetName("idx_targets_user_type_window"),
		},
		// Leaderboard and reconciler scans.
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_targets_type_status"),
		},
		{
			Keys:    bson.D{{Key: "parent_target_id", Value: 1}},
			Options: options.Index().SetName("idx_targets_parent"),
		},
	})
}

func ensureTransactions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("transactions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_transactions_reference"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_transactions_user_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_transactions_status_created"),
		},
	})
}

func ensureCommissionLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("commission_logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One row per donation and chain position; makes distribution idempotent.
		{
			Keys:    bson.D{{Key: "donation_id", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_commission_donation_seq"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_commission_user_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_commission_status"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "subject_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_subject_timestamp"),
		},
	})
}
