package userstore_test

import (
	"testing"

	userstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/users"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/indexes"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		FullName: "  Asha Rao ",
		Email:    " Asha@Example.ORG ",
		Role:     "state_coordinator",
		Region:   models.Region{State: "MH"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.ID.IsZero() {
		t.Error("expected generated id")
	}
	if u.FullName != "Asha Rao" || u.FullNameCI != "asha rao" {
		t.Errorf("name = %q / %q", u.FullName, u.FullNameCI)
	}
	if u.Email != "asha@example.org" {
		t.Errorf("email = %q", u.Email)
	}
	if u.Role != models.RoleStateCoordinator || u.Status != "active" {
		t.Errorf("role = %q, status = %q", u.Role, u.Status)
	}

	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Region.State != "MH" {
		t.Errorf("region = %+v", got.Region)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	missing := primitive.NewObjectID()
	tests := []struct {
		name string
		user models.User
	}{
		{"empty name", models.User{FullName: " ", Email: "a@x.org", Role: models.RoleVolunteer}},
		{"unknown role", models.User{FullName: "A", Email: "a@x.org", Role: "superadmin"}},
		{"missing parent", models.User{FullName: "A", Email: "a@x.org", Role: models.RoleVolunteer, ParentCoordinatorID: &missing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.user)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, models.User{FullName: "A", Email: "dup@x.org", Role: models.RoleVolunteer}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "B", Email: "DUP@x.org", Role: models.RoleVolunteer})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
	_, err = store.GetNode(ctx, primitive.NewObjectID())
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("GetNode err = %v, want not found", err)
	}
}

func TestStore_NodesAndChildren(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	chain := fx.CreateChain(ctx, models.RoleNationalPresident, models.RoleStateCoordinator, models.RoleZoneCoordinator)
	top, state, zone := chain[0], chain[1], chain[2]
	sib := fx.CreateUser(ctx, "Zone Two", models.RoleZoneCoordinator, &state.ID, models.Region{State: "MH", Zone: "East"})

	n, err := store.GetNode(ctx, zone.ID)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if n.ParentID == nil || *n.ParentID != state.ID || n.Role != models.RoleZoneCoordinator {
		t.Errorf("node = %+v", n)
	}

	root, err := store.GetNode(ctx, top.ID)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if root.ParentID != nil {
		t.Errorf("top node has parent %v", root.ParentID)
	}

	kids, err := store.ChildIDs(ctx, state.ID)
	if err != nil {
		t.Fatalf("ChildIDs failed: %v", err)
	}
	if len(kids) != 2 || kids[0] != zone.ID || kids[1] != sib.ID {
		t.Errorf("children = %v, want [%s %s]", kids, zone.ID.Hex(), sib.ID.Hex())
	}

	none, err := store.ChildIDs(ctx, zone.ID)
	if err != nil {
		t.Fatalf("ChildIDs failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("leaf has children %v", none)
	}
}
