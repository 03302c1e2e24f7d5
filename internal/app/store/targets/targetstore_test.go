package targetstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/leaderboard"
	targetstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/targets"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/indexes"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	jan1  = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*targetstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return targetstore.New(db, zap.NewNop()), db
}

func newTarget(user primitive.ObjectID, value float64, status models.TargetStatus) models.Target {
	return models.Target{
		Type:        models.TargetDonationCollection,
		AssignedTo:  user,
		TargetValue: value,
		Status:      status,
		IsActive:    status.IsActive(),
		StartDate:   jan1,
		EndDate:     jan31,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	in, err := store.Insert(ctx, newTarget(user, 10000, models.TargetPending))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	got, err := store.Get(ctx, in.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TargetValue != 10000 || got.AssignedTo != user || got.Subdivisions == nil {
		t.Errorf("got %+v", got)
	}

	if _, err := store.Get(ctx, primitive.NewObjectID()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("Get unknown err = %v, want not found", err)
	}
}

func TestStore_Insert_OneActivePerUser(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	if _, err := store.Insert(ctx, newTarget(user, 100, models.TargetPending)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	_, err := store.Insert(ctx, newTarget(user, 200, models.TargetInProgress))
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("second active insert err = %v, want conflict", err)
	}
	if _, err := store.Insert(ctx, newTarget(user, 300, models.TargetCompleted)); err != nil {
		t.Errorf("completed insert failed: %v", err)
	}
}

func TestStore_Replace_CompareAndSwap(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	in, err := store.Insert(ctx, newTarget(primitive.NewObjectID(), 100, models.TargetPending))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	first := in
	first.PersonalCollection = 40
	saved, err := store.Replace(ctx, first)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if saved.Version != in.Version+1 {
		t.Errorf("version = %d, want %d", saved.Version, in.Version+1)
	}

	stale := in
	stale.PersonalCollection = 99
	if _, err := store.Replace(ctx, stale); !errors.Is(err, apperr.ErrVersionConflict) {
		t.Errorf("stale replace err = %v, want version conflict", err)
	}

	got, _ := store.Get(ctx, in.ID)
	if got.PersonalCollection != 40 {
		t.Errorf("stale write applied: personal = %v", got.PersonalCollection)
	}

	ghost := newTarget(primitive.NewObjectID(), 1, models.TargetPending)
	ghost.ID = primitive.NewObjectID()
	if _, err := store.Replace(ctx, ghost); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("replace unknown err = %v, want not found", err)
	}
}

func TestStore_CurrentAndActive(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	done, err := store.Insert(ctx, newTarget(user, 100, models.TargetCompleted))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if a, err := store.Active(ctx, user, models.TargetDonationCollection); err != nil || a != nil {
		t.Errorf("Active = %v, %v; want nil", a, err)
	}
	cur, err := store.Current(ctx, user, models.TargetDonationCollection, jan1.AddDate(0, 0, 10))
	if err != nil || cur == nil || cur.ID != done.ID {
		t.Fatalf("Current within window = %v, %v; want completed target", cur, err)
	}
	if cur, _ := store.Current(ctx, user, models.TargetDonationCollection, jan31.AddDate(0, 0, 1)); cur != nil {
		t.Errorf("Current after window = %v, want nil", cur.ID)
	}

	active, err := store.Insert(ctx, newTarget(user, 500, models.TargetInProgress))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	cur, _ = store.Current(ctx, user, models.TargetDonationCollection, jan1.AddDate(0, 0, 10))
	if cur == nil || cur.ID != active.ID {
		t.Errorf("Current should prefer the active target")
	}
}

func TestStore_ForUsersAndLists(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	ta, _ := store.Insert(ctx, newTarget(a, 100, models.TargetInProgress))
	cancelled := newTarget(b, 100, models.TargetCancelled)
	if _, err := store.Insert(ctx, cancelled); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	later := newTarget(b, 100, models.TargetPending)
	later.StartDate, later.EndDate = jan31.AddDate(0, 1, 0), jan31.AddDate(0, 2, 0)
	if _, err := store.Insert(ctx, later); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := store.Insert(ctx, newTarget(c, 100, models.TargetPending)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.ForUsers(ctx, []primitive.ObjectID{a, b}, models.TargetDonationCollection, jan1, jan31)
	if err != nil {
		t.Fatalf("ForUsers failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != ta.ID {
		t.Errorf("ForUsers = %v, want only %s", got, ta.ID.Hex())
	}

	active, err := store.ListActive(ctx, models.TargetDonationCollection)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 3 {
		t.Errorf("ListActive = %d targets, want 3", len(active))
	}

	mine, err := store.ListByUser(ctx, b)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("ListByUser = %d targets, want 2", len(mine))
	}
}

func TestStore_Subdivide(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	parent, err := store.Insert(ctx, newTarget(primitive.NewObjectID(), 1000, models.TargetPending))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	k1, k2 := primitive.NewObjectID(), primitive.NewObjectID()
	c1 := newTarget(k1, 600, models.TargetPending)
	c1.ID, c1.ParentTargetID = primitive.NewObjectID(), &parent.ID
	c2 := newTarget(k2, 400, models.TargetPending)
	c2.ID, c2.ParentTargetID = primitive.NewObjectID(), &parent.ID

	upd := parent
	upd.IsDivided = true
	upd.Subdivisions = []primitive.ObjectID{c1.ID, c2.ID}

	created, err := store.Subdivide(ctx, upd, []models.Target{c1, c2})
	if err != nil {
		t.Fatalf("Subdivide failed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d children", len(created))
	}
	got, _ := store.Get(ctx, parent.ID)
	if !got.IsDivided || len(got.Subdivisions) != 2 || got.Version != parent.Version+1 {
		t.Errorf("parent after subdivide = %+v", got)
	}

	// A stale parent version writes nothing.
	c3 := newTarget(primitive.NewObjectID(), 1, models.TargetPending)
	c3.ID = primitive.NewObjectID()
	if _, err := store.Subdivide(ctx, upd, []models.Target{c3}); !errors.Is(err, apperr.ErrVersionConflict) {
		t.Errorf("stale subdivide err = %v, want version conflict", err)
	}
	if _, err := store.Get(ctx, c3.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Error("child of a failed subdivide was written")
	}
}

func TestStore_Subdivide_ConflictWritesNothing(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	busy := primitive.NewObjectID()
	if _, err := store.Insert(ctx, newTarget(busy, 50, models.TargetPending)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	parent, _ := store.Insert(ctx, newTarget(primitive.NewObjectID(), 1000, models.TargetPending))

	free := newTarget(primitive.NewObjectID(), 300, models.TargetPending)
	free.ID = primitive.NewObjectID()
	clash := newTarget(busy, 300, models.TargetPending)
	clash.ID = primitive.NewObjectID()

	upd := parent
	upd.IsDivided = true
	upd.Subdivisions = []primitive.ObjectID{free.ID, clash.ID}
	_, err := store.Subdivide(ctx, upd, []models.Target{free, clash})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	if _, err := store.Get(ctx, free.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Error("first child survived a failed subdivide")
	}
	got, _ := store.Get(ctx, parent.ID)
	if got.IsDivided || len(got.Subdivisions) != 0 {
		t.Errorf("parent left divided: %+v", got)
	}
}

func TestStore_Standings(t *testing.T) {
	store, db := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	west := models.Region{State: "MH", Zone: "West"}
	alice := fx.CreateUser(ctx, "Alice", models.RoleZoneCoordinator, nil, west)
	bob := fx.CreateUser(ctx, "Bob", models.RoleZoneCoordinator, nil, models.Region{State: "KA"})

	ta := newTarget(alice.ID, 1000, models.TargetInProgress)
	ta.PersonalCollection, ta.TeamCollection, ta.Region = 200, 300, west
	if _, err := store.Insert(ctx, ta); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	tb := newTarget(bob.ID, 500, models.TargetCompleted)
	tb.PersonalCollection, tb.Region = 600, models.Region{State: "KA"}
	if _, err := store.Insert(ctx, tb); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	all, err := store.Standings(ctx, leaderboard.Query{
		Type:     models.TargetDonationCollection,
		Statuses: []models.TargetStatus{models.TargetPending, models.TargetInProgress, models.TargetCompleted},
	})
	if err != nil {
		t.Fatalf("Standings failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("standings = %d, want 2", len(all))
	}
	byID := map[primitive.ObjectID]leaderboard.Standing{}
	for _, s := range all {
		byID[s.UserID] = s
	}
	if s := byID[alice.ID]; s.TotalCollected != 500 || s.TargetAmount != 1000 || s.Name != "Alice" || s.Role != models.RoleZoneCoordinator {
		t.Errorf("alice = %+v", s)
	}

	region, err := store.Standings(ctx, leaderboard.Query{
		Type:     models.TargetDonationCollection,
		Statuses: []models.TargetStatus{models.TargetPending, models.TargetInProgress},
		Region:   models.Region{State: "MH"},
	})
	if err != nil {
		t.Fatalf("Standings failed: %v", err)
	}
	if len(region) != 1 || region[0].UserID != alice.ID {
		t.Errorf("region standings = %+v", region)
	}

	none, err := store.Standings(ctx, leaderboard.Query{
		Type:     models.TargetDonationCollection,
		Statuses: []models.TargetStatus{models.TargetInProgress},
		UserIDs:  []primitive.ObjectID{bob.ID},
	})
	if err != nil {
		t.Fatalf("Standings failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("bob has no in-progress target, got %+v", none)
	}
}
