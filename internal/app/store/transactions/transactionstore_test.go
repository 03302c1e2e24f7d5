package transactionstore_test

import (
	"testing"
	"time"

	transactionstore "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/transactions"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func pending(user primitive.ObjectID, amount float64, created time.Time) models.Transaction {
	return models.Transaction{
		Reference:   "COL-" + primitive.NewObjectID().Hex(),
		UserID:      user,
		Amount:      amount,
		PaymentMode: models.PaymentCash,
		Status:      models.TransactionPending,
		CollectedAt: created,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestStore_DecideOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transactionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tx, err := store.Insert(ctx, pending(primitive.NewObjectID(), 2000, time.Now().UTC()))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	reviewer := primitive.NewObjectID()
	at := time.Now().UTC().Truncate(time.Millisecond)
	got, err := store.Decide(ctx, tx.ID, models.TransactionVerified, &reviewer, at, "")
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if got.Status != models.TransactionVerified || got.VerifiedBy == nil || *got.VerifiedBy != reviewer {
		t.Errorf("decided = %+v", got)
	}
	if got.VerifiedAt == nil || !got.VerifiedAt.Equal(at) {
		t.Errorf("verified_at = %v, want %v", got.VerifiedAt, at)
	}

	_, err = store.Decide(ctx, tx.ID, models.TransactionRejected, &reviewer, at, "late")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("second decide err = %v, want conflict", err)
	}

	_, err = store.Decide(ctx, primitive.NewObjectID(), models.TransactionVerified, nil, at, "")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("decide unknown err = %v, want not found", err)
	}
}

func TestStore_Reject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transactionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tx, _ := store.Insert(ctx, pending(primitive.NewObjectID(), 50, time.Now().UTC()))
	got, err := store.Decide(ctx, tx.ID, models.TransactionRejected, nil, time.Now().UTC(), "duplicate receipt")
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if got.Status != models.TransactionRejected || got.RejectionReason != "duplicate receipt" || got.VerifiedBy != nil {
		t.Errorf("rejected = %+v", got)
	}
}

func TestStore_Reopen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transactionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tx, _ := store.Insert(ctx, pending(primitive.NewObjectID(), 50, time.Now().UTC()))
	if err := store.Reopen(ctx, tx.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("reopen pending err = %v, want conflict", err)
	}

	by := primitive.NewObjectID()
	if _, err := store.Decide(ctx, tx.ID, models.TransactionVerified, &by, time.Now().UTC(), ""); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if err := store.Reopen(ctx, tx.ID); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got, _ := store.Get(ctx, tx.ID)
	if got.Status != models.TransactionPending || got.VerifiedBy != nil || got.VerifiedAt != nil {
		t.Errorf("reopened = %+v", got)
	}
}

func TestStore_Retarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transactionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := primitive.NewObjectID()
	in := pending(primitive.NewObjectID(), 50, time.Now().UTC())
	in.TargetID = &old
	tx, _ := store.Insert(ctx, in)

	fresh := primitive.NewObjectID()
	if err := store.Retarget(ctx, tx.ID, &fresh); err != nil {
		t.Fatalf("Retarget failed: %v", err)
	}
	got, _ := store.Get(ctx, tx.ID)
	if got.TargetID == nil || *got.TargetID != fresh {
		t.Errorf("target_id = %v, want %s", got.TargetID, fresh.Hex())
	}

	if err := store.Retarget(ctx, tx.ID, nil); err != nil {
		t.Fatalf("Retarget to nil failed: %v", err)
	}
	got, _ = store.Get(ctx, tx.ID)
	if got.TargetID != nil {
		t.Errorf("target_id = %v, want unset", got.TargetID)
	}

	if _, err := store.Decide(ctx, tx.ID, models.TransactionRejected, nil, time.Now().UTC(), "void"); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if err := store.Retarget(ctx, tx.ID, &fresh); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("retarget decided err = %v, want conflict", err)
	}
}

func TestStore_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := transactionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)
	older, _ := store.Insert(ctx, pending(user, 10, base))
	newer, _ := store.Insert(ctx, pending(user, 20, base.Add(time.Minute)))
	if _, err := store.Insert(ctx, pending(primitive.NewObjectID(), 30, base)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.ListByUser(ctx, user)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Errorf("ListByUser order wrong: %v", got)
	}
}
