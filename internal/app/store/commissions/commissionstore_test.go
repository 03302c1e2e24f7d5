package commissionstore_test

import (
	"testing"
	"time"

	commissionstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/commissions"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/indexes"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T) *commissionstore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return commissionstore.New(db, zap.NewNop())
}

func rowsFor(donation string, users ...primitive.ObjectID) []models.CommissionLog {
	now := time.Now().UTC()
	out := make([]models.CommissionLog, len(users))
	for i, u := range users {
		out[i] = models.CommissionLog{
			DonationID:       donation,
			Sequence:         i,
			UserID:           u,
			DonationAmount:   10000,
			CommissionAmount: float64(100 * i),
			Status:           models.CommissionPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	}
	return out
}

func TestStore_InsertMany_Idempotent(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	if _, err := store.InsertMany(ctx, rowsFor("don-1", c, b, a)); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	_, err := store.InsertMany(ctx, rowsFor("don-1", c, b, a))
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("second InsertMany err = %v, want conflict", err)
	}

	got, err := store.ListByDonation(ctx, "don-1")
	if err != nil {
		t.Fatalf("ListByDonation failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	for i, r := range got {
		if r.Sequence != i {
			t.Errorf("row %d has sequence %d", i, r.Sequence)
		}
	}
	if got[2].UserID != a {
		t.Errorf("last row user = %s, want %s", got[2].UserID.Hex(), a.Hex())
	}
}

func TestStore_Transition(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rows, err := store.InsertMany(ctx, rowsFor("don-2", primitive.NewObjectID(), primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	id := rows[1].ID
	at := time.Now().UTC().Truncate(time.Millisecond)

	failed, err := store.Transition(ctx, id, []models.CommissionStatus{models.CommissionPending}, models.CommissionFailed, at, "bank rejected")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if failed.Status != models.CommissionFailed || failed.FailureReason != "bank rejected" {
		t.Errorf("failed row = %+v", failed)
	}

	paid, err := store.Transition(ctx, id, []models.CommissionStatus{models.CommissionPending, models.CommissionFailed}, models.CommissionPaid, at, "")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if paid.Status != models.CommissionPaid || paid.PaidAt == nil || paid.FailureReason != "" {
		t.Errorf("paid row = %+v", paid)
	}
	if paid.CommissionAmount != rows[1].CommissionAmount {
		t.Errorf("amount changed: %v", paid.CommissionAmount)
	}

	_, err = store.Transition(ctx, id, []models.CommissionStatus{models.CommissionPending}, models.CommissionPaid, at, "")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("re-pay err = %v, want conflict", err)
	}
	_, err = store.Transition(ctx, primitive.NewObjectID(), []models.CommissionStatus{models.CommissionPending}, models.CommissionPaid, at, "")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("unknown row err = %v, want not found", err)
	}
}

func TestStore_CancelDonation(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	rows, err := store.InsertMany(ctx, rowsFor("don-3", user, primitive.NewObjectID(), primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	now := time.Now().UTC()
	if _, err := store.Transition(ctx, rows[0].ID, []models.CommissionStatus{models.CommissionPending}, models.CommissionPaid, now, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	n, err := store.CancelDonation(ctx, "don-3", now)
	if err != nil {
		t.Fatalf("CancelDonation failed: %v", err)
	}
	if n != 2 {
		t.Errorf("cancelled = %d, want 2", n)
	}

	mine, err := store.ListByUser(ctx, user)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != models.CommissionPaid {
		t.Errorf("paid row should survive cancellation: %+v", mine)
	}
}
