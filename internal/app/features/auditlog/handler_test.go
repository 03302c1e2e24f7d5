package auditlog_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/auditlog"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/audit"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/paging"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeEvents returns a fixed newest-first history, honouring only Limit,
// and records the filter it was asked for.
type fakeEvents struct {
	events []audit.Event
	last   audit.QueryFilter
}

func (f *fakeEvents) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	f.last = filter
	out := f.events
	if filter.Limit > 0 && int(filter.Limit) < len(out) {
		out = out[:filter.Limit]
	}
	return append([]audit.Event(nil), out...), nil
}

type listBody struct {
	Events []struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		SubjectID string `json:"subject_id"`
	} `json:"events"`
	Next string `json:"next"`
}

func history(n int, subject primitive.ObjectID) []audit.Event {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]audit.Event, n)
	for i := range out {
		out[i] = audit.Event{
			ID:        primitive.NewObjectID(),
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
			Category:  audit.CategoryCollections,
			EventType: audit.EventCollectionVerified,
			SubjectID: &subject,
			Success:   true,
		}
	}
	return out
}

func TestServeList_AdminPages(t *testing.T) {
	subject := primitive.NewObjectID()
	store := &fakeEvents{events: history(5, subject)}
	h := auditlog.NewHandler(store, zap.NewNop())
	admin := testutil.AdminUser()

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/audit?limit=2&category=Collections", admin))
	rec.AssertStatus(t, http.StatusOK)

	var body listBody
	rec.DecodeJSON(t, &body)
	require.Len(t, body.Events, 2)
	assert.NotEmpty(t, body.Next)
	assert.Equal(t, int64(3), store.last.Limit, "one extra row detects the next page")
	assert.Equal(t, audit.CategoryCollections, store.last.Category)
	assert.Nil(t, store.last.SubjectID)

	c, ok := paging.Decode(body.Next)
	require.True(t, ok)
	assert.Equal(t, store.events[1].ID, c.ID)
	assert.True(t, store.events[1].Timestamp.Equal(c.At))

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/audit?after="+body.Next, admin))
	rec.AssertStatus(t, http.StatusOK)
	require.NotNil(t, store.last.After)
	assert.Equal(t, c.ID, store.last.After.ID)
}

func TestServeList_LastPageHasNoCursor(t *testing.T) {
	store := &fakeEvents{events: history(2, primitive.NewObjectID())}
	h := auditlog.NewHandler(store, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/audit", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)

	var body listBody
	rec.DecodeJSON(t, &body)
	assert.Len(t, body.Events, 2)
	assert.Empty(t, body.Next)
}

func TestServeList_NonAdminSeesOwnHistory(t *testing.T) {
	me := primitive.NewObjectID()
	store := &fakeEvents{events: history(1, me)}
	h := auditlog.NewHandler(store, zap.NewNop())
	user := testutil.UserAs(me, models.RoleZoneCoordinator)

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/audit?actor_id="+primitive.NewObjectID().Hex(), user))
	rec.AssertStatus(t, http.StatusOK)
	require.NotNil(t, store.last.SubjectID)
	assert.Equal(t, me, *store.last.SubjectID)
	assert.Nil(t, store.last.ActorID)

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/audit?subject_id="+primitive.NewObjectID().Hex(), user))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeList_Rejections(t *testing.T) {
	h := auditlog.NewHandler(&fakeEvents{}, zap.NewNop())

	tests := []struct {
		name  string
		query string
	}{
		{"bad start", "start_date=June"},
		{"bad end", "end_date=2026-13-01"},
		{"inverted range", "start_date=2026-06-02&end_date=2026-06-01"},
		{"bad cursor", "after=nope"},
		{"bad limit", "limit=0"},
		{"bad actor", "actor_id=xyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/audit?"+tt.query, testutil.AdminUser()))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestServeList_DateRangeIsInclusive(t *testing.T) {
	store := &fakeEvents{}
	h := auditlog.NewHandler(store, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/audit?start_date=2026-06-01&end_date=2026-06-01", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)

	require.NotNil(t, store.last.StartTime)
	require.NotNil(t, store.last.EndTime)
	assert.True(t, store.last.EndTime.After(*store.last.StartTime))
	assert.Equal(t, 1, store.last.EndTime.Day())
}

func TestServeList_RequiresPrincipal(t *testing.T) {
	h := auditlog.NewHandler(&fakeEvents{}, zap.NewNop())
	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest("GET", "/audit"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
