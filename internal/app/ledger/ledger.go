// Package ledger records collections submitted by coordinators and
// volunteers and credits them to targets once verified.
package ledger

import (
	"context"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/propagation"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/htmlsanitize"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/inputval"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Repository persists transactions. Missing records yield
// apperr.KindNotFound.
type Repository interface {
	Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Transaction, error)
	// Decide moves a pending transaction to `to`. A transaction that is no
	// longer pending yields apperr.KindConflict.
	Decide(ctx context.Context, id primitive.ObjectID, to models.TransactionStatus, by *primitive.ObjectID, at time.Time, reason string) (models.Transaction, error)
	// Reopen returns a verified transaction to pending.
	Reopen(ctx context.Context, id primitive.ObjectID) error
	// Retarget rebinds a pending transaction to another target (nil for none).
	Retarget(ctx context.Context, id primitive.ObjectID, targetID *primitive.ObjectID) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error)
}

// Targets is the target collaborator the ledger credits.
type Targets interface {
	// Current returns the target collections are credited to: the active
	// one, else a COMPLETED one whose window is still open.
	Current(ctx context.Context, userID primitive.ObjectID, typ models.TargetType, at time.Time) (*models.Target, error)
	RecordPersonalCollection(ctx context.Context, targetID primitive.ObjectID, amount float64) (models.Target, error)
}

// Propagator refreshes ancestor aggregates. It never fails.
type Propagator interface {
	Propagate(ctx context.Context, userID primitive.ObjectID, typ models.TargetType) propagation.Report
}

// Ledger implements collection submission and review.
type Ledger struct {
	repo    Repository
	targets Targets
	prop    Propagator
	dir     *hierarchy.Directory
	log     *zap.Logger
	now     func() time.Time
}

// New constructs a Ledger.
func New(repo Repository, targets Targets, prop Propagator, dir *hierarchy.Directory, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, targets: targets, prop: prop, dir: dir, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the time source (tests).
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// SubmitInput is a collection report. UserID defaults to the actor.
type SubmitInput struct {
	UserID      primitive.ObjectID
	Amount      float64 `validate:"gt=0" label:"Amount"`
	PaymentMode string  `validate:"required,paymentmode" label:"Payment mode"`
	DonorName   string  `validate:"max=200" label:"Donor name"`
	DonorPhone  string  `validate:"max=32" label:"Donor phone"`
	DonorEmail  string  `validate:"omitempty,email" label:"Donor email"`
	Note        string  `validate:"max=1000" label:"Note"`
	CollectedAt time.Time
}

// Submit stores a pending collection for in.UserID. Reporting on behalf of
// someone else requires being their ancestor or a top administrator.
func (l *Ledger) Submit(ctx context.Context, actor models.Principal, in SubmitInput) (models.Transaction, error) {
	const op = "submit collection"

	if res := inputval.Validate(in); res.HasErrors() {
		return models.Transaction{}, apperr.Validation(op, "%s", res.All())
	}
	mode, _ := models.ParsePaymentMode(in.PaymentMode)

	userID := in.UserID
	if userID.IsZero() {
		if actor.Ref.IsSynthetic() {
			return models.Transaction{}, apperr.Validation(op, "user id is required")
		}
		userID = actor.UserID()
	}
	if _, err := l.dir.Node(ctx, userID); err != nil {
		return models.Transaction{}, err
	}
	if userID != actor.UserID() && !actor.IsTopAdmin() {
		ok, err := l.dir.IsAncestor(ctx, actor.UserID(), userID)
		if err != nil {
			return models.Transaction{}, err
		}
		if !ok {
			return models.Transaction{}, apperr.Permission(op, "only the collector, an ancestor or an administrator may report this collection")
		}
	}

	now := l.now()
	collected := in.CollectedAt
	if collected.IsZero() {
		collected = now
	}

	tx := models.Transaction{
		ID:          primitive.NewObjectID(),
		Reference:   "COL-" + uuid.NewString(),
		UserID:      userID,
		Amount:      in.Amount,
		PaymentMode: mode,
		Status:      models.TransactionPending,
		Donor: models.DonorMeta{
			Name:  htmlsanitize.PlainText(in.DonorName),
			Phone: htmlsanitize.PlainText(in.DonorPhone),
			Email: htmlsanitize.PlainText(in.DonorEmail),
			Note:  htmlsanitize.PlainText(in.Note),
		},
		CollectedAt: collected,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	current, err := l.targets.Current(ctx, userID, models.TargetDonationCollection, now)
	if err != nil {
		return models.Transaction{}, err
	}
	if current != nil {
		id := current.ID
		tx.TargetID = &id
	}

	saved, err := l.repo.Insert(ctx, tx)
	if err != nil {
		return models.Transaction{}, err
	}
	l.log.Info("collection submitted",
		zap.String("transaction_id", saved.ID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.Float64("amount", saved.Amount),
		zap.String("payment_mode", string(saved.PaymentMode)))
	return saved, nil
}

// Verification is the result of Verify.
type Verification struct {
	Transaction models.Transaction `json:"transaction"`
	// Target is the credited target, nil when the collector had none.
	Target      *models.Target     `json:"target,omitempty"`
	Propagation propagation.Report `json:"-"`
}

// Verify approves a pending collection, credits it to the collector's
// target and refreshes the ancestors' team collections. Propagation
// problems are logged and never fail the call.
func (l *Ledger) Verify(ctx context.Context, actor models.Principal, txID primitive.ObjectID) (Verification, error) {
	const op = "verify collection"

	tx, err := l.repo.Get(ctx, txID)
	if err != nil {
		return Verification{}, err
	}
	if err := l.checkReviewer(ctx, op, actor, tx); err != nil {
		return Verification{}, err
	}
	if tx.Status != models.TransactionPending {
		return Verification{}, apperr.Conflict(op, "collection is already %s", tx.Status)
	}

	targetID, err := l.creditTarget(ctx, tx)
	if err != nil {
		return Verification{}, err
	}

	var by *primitive.ObjectID
	if !actor.Ref.IsSynthetic() {
		id := actor.UserID()
		by = &id
	}
	verified, err := l.repo.Decide(ctx, txID, models.TransactionVerified, by, l.now(), "")
	if err != nil {
		return Verification{}, err
	}

	out := Verification{Transaction: verified}
	if targetID == nil {
		l.log.Info("collection verified without a current target",
			zap.String("transaction_id", txID.Hex()),
			zap.String("user_id", tx.UserID.Hex()))
		return out, nil
	}

	credited, err := l.targets.RecordPersonalCollection(ctx, *targetID, tx.Amount)
	if err != nil {
		// Undo the decision so the collection can be reviewed again.
		if rerr := l.repo.Reopen(ctx, txID); rerr != nil {
			l.log.Error("failed to reopen collection after crediting failed",
				zap.String("transaction_id", txID.Hex()), zap.Error(rerr))
		}
		return Verification{}, err
	}
	out.Target = &credited

	out.Propagation = l.prop.Propagate(ctx, tx.UserID, credited.Type)
	l.log.Info("collection verified",
		zap.String("transaction_id", txID.Hex()),
		zap.String("target_id", credited.ID.Hex()),
		zap.Float64("amount", tx.Amount),
		zap.String("propagation_run", out.Propagation.RunID),
		zap.String("propagation_outcome", string(out.Propagation.Outcome)))
	return out, nil
}

// creditTarget returns the target a verified tx credits. The binding made at
// submit time stands while it is still the collector's current target.
// Otherwise the current target, or none, replaces it and the transaction is
// rebound before it is decided.
func (l *Ledger) creditTarget(ctx context.Context, tx models.Transaction) (*primitive.ObjectID, error) {
	current, err := l.targets.Current(ctx, tx.UserID, models.TargetDonationCollection, l.now())
	if err != nil {
		return nil, err
	}
	var targetID *primitive.ObjectID
	if current != nil {
		id := current.ID
		targetID = &id
	}
	if sameTarget(tx.TargetID, targetID) {
		return targetID, nil
	}

	fields := []zap.Field{zap.String("transaction_id", tx.ID.Hex()), zap.Bool("has_current_target", targetID != nil)}
	if tx.TargetID != nil {
		fields = append(fields, zap.String("bound_target_id", tx.TargetID.Hex()))
	}
	l.log.Info("collection rebound to the collector's current target", fields...)
	if err := l.repo.Retarget(ctx, tx.ID, targetID); err != nil {
		return nil, err
	}
	return targetID, nil
}

func sameTarget(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Reject declines a pending collection with a reason.
func (l *Ledger) Reject(ctx context.Context, actor models.Principal, txID primitive.ObjectID, reason string) (models.Transaction, error) {
	const op = "reject collection"

	reason = htmlsanitize.PlainText(reason)
	if reason == "" {
		return models.Transaction{}, apperr.Validation(op, "a rejection reason is required")
	}
	tx, err := l.repo.Get(ctx, txID)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := l.checkReviewer(ctx, op, actor, tx); err != nil {
		return models.Transaction{}, err
	}
	var by *primitive.ObjectID
	if !actor.Ref.IsSynthetic() {
		id := actor.UserID()
		by = &id
	}
	rejected, err := l.repo.Decide(ctx, txID, models.TransactionRejected, by, l.now(), reason)
	if err != nil {
		return models.Transaction{}, err
	}
	l.log.Info("collection rejected", zap.String("transaction_id", txID.Hex()), zap.String("reason", reason))
	return rejected, nil
}

// ListForUser returns userID's collections, newest first.
func (l *Ledger) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	return l.repo.ListByUser(ctx, userID)
}

// View returns one collection to its collector, an ancestor of the
// collector or a top administrator.
func (l *Ledger) View(ctx context.Context, actor models.Principal, id primitive.ObjectID) (models.Transaction, error) {
	const op = "view collection"
	tx, err := l.repo.Get(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	if actor.IsTopAdmin() || (!actor.Ref.IsSynthetic() && actor.UserID() == tx.UserID) {
		return tx, nil
	}
	if actor.Ref.IsSynthetic() {
		return models.Transaction{}, apperr.Permission(op, "not allowed to view this collection")
	}
	ok, err := l.dir.IsAncestor(ctx, actor.UserID(), tx.UserID)
	if err != nil {
		return models.Transaction{}, err
	}
	if !ok {
		return models.Transaction{}, apperr.Permission(op, "not allowed to view this collection")
	}
	return tx, nil
}

// checkReviewer allows top administrators and strict ancestors of the
// collector. Nobody reviews their own collection.
func (l *Ledger) checkReviewer(ctx context.Context, op string, actor models.Principal, tx models.Transaction) error {
	if actor.IsTopAdmin() {
		return nil
	}
	if actor.UserID() == tx.UserID {
		return apperr.Permission(op, "collectors cannot review their own collections")
	}
	ok, err := l.dir.IsAncestor(ctx, actor.UserID(), tx.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Permission(op, "only an ancestor of the collector may review this collection")
	}
	return nil
}
