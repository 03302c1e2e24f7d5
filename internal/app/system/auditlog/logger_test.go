package auditlog_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/audit"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auditlog"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	events []audit.Event
	err    error
}

func (s *recordingSink) Log(_ context.Context, e audit.Event) error {
	s.events = append(s.events, e)
	return s.err
}

func realActor() models.Principal {
	return models.Principal{Ref: models.RealUser(primitive.NewObjectID()), Role: models.RoleStateCoordinator}
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(context.Background(), audit.Event{EventType: "test"})
	logger.TargetAssigned(context.Background(), req, realActor(), models.Target{})
	logger.CommissionsCancelled(context.Background(), nil, realActor(), "don-1", 3)
}

func TestLogger_Modes(t *testing.T) {
	tests := []struct {
		mode     string
		wantDB   int
		wantLogs int
	}{
		{auditlog.ModeAll, 1, 1},
		{"", 1, 1},
		{auditlog.ModeDB, 1, 0},
		{auditlog.ModeLog, 0, 1},
		{auditlog.ModeOff, 0, 0},
		{"OFF", 0, 0},
	}
	for _, tt := range tests {
		t.Run("mode="+tt.mode, func(t *testing.T) {
			sink := &recordingSink{}
			core, logs := observer.New(zapcore.InfoLevel)
			logger := auditlog.New(sink, zap.New(core), auditlog.Config{Mode: tt.mode})

			logger.Log(context.Background(), audit.Event{
				Category:  audit.CategoryTargets,
				EventType: audit.EventTargetAssigned,
				Success:   true,
			})

			if len(sink.events) != tt.wantDB {
				t.Errorf("db events = %d, want %d", len(sink.events), tt.wantDB)
			}
			if logs.Len() != tt.wantLogs {
				t.Errorf("log entries = %d, want %d", logs.Len(), tt.wantLogs)
			}
		})
	}
}

func TestLogger_StoreFailureIsLogged(t *testing.T) {
	sink := &recordingSink{err: errors.New("write failed")}
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := auditlog.New(sink, zap.New(core), auditlog.Config{Mode: auditlog.ModeDB})

	logger.Log(context.Background(), audit.Event{EventType: audit.EventCollectionVerified, Success: true})

	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected store failure to be logged")
	}
}

func TestLogger_ActorAndSubject(t *testing.T) {
	sink := &recordingSink{}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Mode: auditlog.ModeDB})
	req := httptest.NewRequest("POST", "/collections/x/reject", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")

	actor := realActor()
	tx := models.Transaction{
		ID:              primitive.NewObjectID(),
		Reference:       "COL-1",
		UserID:          primitive.NewObjectID(),
		Amount:          2000,
		PaymentMode:     models.PaymentUPI,
		RejectionReason: "duplicate receipt",
	}
	logger.CollectionRejected(context.Background(), req, actor, tx)

	demo := models.Principal{Ref: models.SyntheticUser(models.DemoAdminTag), Role: models.RoleAdmin}
	logger.CommissionsCancelled(context.Background(), nil, demo, "don-9", 4)

	if len(sink.events) != 2 {
		t.Fatalf("events = %d, want 2", len(sink.events))
	}

	e := sink.events[0]
	if e.ActorID == nil || *e.ActorID != actor.UserID() {
		t.Errorf("ActorID = %v", e.ActorID)
	}
	if e.SubjectID == nil || *e.SubjectID != tx.UserID {
		t.Errorf("SubjectID = %v", e.SubjectID)
	}
	if e.EntityID != tx.ID.Hex() || e.IP != "10.0.0.9" {
		t.Errorf("EntityID = %q, IP = %q", e.EntityID, e.IP)
	}
	if e.Details["reason"] != "duplicate receipt" || e.Details["amount"] != "2000.00" {
		t.Errorf("Details = %v", e.Details)
	}

	d := sink.events[1]
	if d.ActorID != nil || d.ActorTag != models.DemoAdminTag {
		t.Errorf("synthetic actor recorded as %v / %q", d.ActorID, d.ActorTag)
	}
	if d.Details["rows"] != "4" {
		t.Errorf("Details = %v", d.Details)
	}
}

func TestLogger_PersistsToStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Mode: auditlog.ModeDB})
	target := models.Target{ID: primitive.NewObjectID(), AssignedTo: primitive.NewObjectID(), Type: models.TargetDonationCollection, TargetValue: 10000}
	logger.TargetAssigned(ctx, nil, realActor(), target)

	events, err := store.GetByEntity(ctx, target.ID.Hex(), 10)
	if err != nil {
		t.Fatalf("GetByEntity failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventTargetAssigned {
		t.Fatalf("events = %+v", events)
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{"", "all", "db", "log", "off", "ALL"} {
		if !auditlog.ValidMode(m) {
			t.Errorf("ValidMode(%q) = false", m)
		}
	}
	if auditlog.ValidMode("verbose") {
		t.Error("ValidMode(verbose) = true")
	}
}
