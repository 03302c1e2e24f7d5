// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryTargets     = "targets"
	CategoryCollections = "collections"
	CategoryCommissions = "commissions"
)

// Target event types
const (
	EventTargetAssigned  = "target_assigned"
	EventTargetDivided   = "target_divided"
	EventTargetCancelled = "target_cancelled"
)

// Collection event types
const (
	EventCollectionSubmitted = "collection_submitted"
	EventCollectionVerified  = "collection_verified"
	EventCollectionRejected  = "collection_rejected"
)

// Commission event types
const (
	EventCommissionsDistributed = "commissions_distributed"
	EventCommissionPaid         = "commission_paid"
	EventCommissionFailed       = "commission_failed"
	EventCommissionsCancelled   = "commissions_cancelled"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who
	ActorID  *primitive.ObjectID `bson:"actor_id,omitempty"`  // nil for synthetic principals
	ActorTag string              `bson:"actor_tag,omitempty"` // synthetic principal tag
	// SubjectID is the user whose target, collection or commission changed.
	SubjectID *primitive.ObjectID `bson:"subject_id,omitempty"`

	// What: target id, transaction id or donation id.
	EntityID string `bson:"entity_id,omitempty"`

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ActorID   *primitive.ObjectID
	SubjectID *primitive.ObjectID
	EntityID  string
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	// After resumes a newest-first listing past this position.
	After *paging.Cursor
	Limit int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}
	if filter.ActorID != nil {
		query["actor_id"] = filter.ActorID
	}
	if filter.SubjectID != nil {
		query["subject_id"] = filter.SubjectID
	}
	if filter.EntityID != "" {
		query["entity_id"] = filter.EntityID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}
	if filter.After != nil {
		for k, v := range filter.After.Older("timestamp") {
			query[k] = v
		}
	}
	return query
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(paging.Sort("timestamp")).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter. After is
// ignored.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	filter.After = nil
	return s.c.CountDocuments(ctx, buildQuery(filter))
}

// GetByEntity retrieves the history of one target, transaction or donation.
func (s *Store) GetByEntity(ctx context.Context, entityID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{EntityID: entityID, Limit: limit})
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}
