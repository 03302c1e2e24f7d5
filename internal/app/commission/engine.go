// Package commission computes and records tiered commissions for the
// ancestors of the user credited with a donation.
//
// Tiers, walking outward from the credited user U:
//
//	U itself                          0%
//	U's immediate parent              5%  (15% if that parent is the top)
//	every ancestor in between         2%
//	the top-most ancestor             15%
//
// The top-most ancestor is one with no parent of its own. When the chain is
// truncated (cycle, depth limit, dangling reference) its last member is not
// the top and is paid at the parent or middle rate.
package commission

import (
	"context"
	"math"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/metrics"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Tier percentages.
const (
	SelfRate     = 0.0
	ParentRate   = 5.0
	AncestorRate = 2.0
	TopRate      = 15.0
)

// Repository persists commission rows.
type Repository interface {
	// InsertMany writes rows for one donation. A duplicate (donation_id,
	// sequence) yields apperr.KindConflict.
	InsertMany(ctx context.Context, rows []models.CommissionLog) ([]models.CommissionLog, error)
	// ListByDonation returns the rows of a donation ordered by sequence.
	ListByDonation(ctx context.Context, donationID string) ([]models.CommissionLog, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.CommissionLog, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.CommissionLog, error)
	// Transition changes the status of row id if it is currently one of
	// from, applying set to the payment fields. Otherwise KindConflict.
	Transition(ctx context.Context, id primitive.ObjectID, from []models.CommissionStatus, to models.CommissionStatus, at time.Time, reason string) (models.CommissionLog, error)
	// CancelDonation moves every PENDING or FAILED row of donationID to
	// CANCELLED and returns how many changed.
	CancelDonation(ctx context.Context, donationID string, at time.Time) (int64, error)
}

// Engine computes and records commissions.
type Engine struct {
	dir     *hierarchy.Directory
	repo    Repository
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New constructs an Engine.
func New(dir *hierarchy.Directory, repo Repository, logger *zap.Logger, m *metrics.Metrics) *Engine {
	return &Engine{dir: dir, repo: repo, log: logger, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// Round rounds a currency amount to the nearest whole unit.
func Round(v float64) float64 {
	return math.Round(v)
}

// Calculate returns one unsaved row per participant in the credited user's
// chain, in ancestor order starting with the user (sequence 0).
//
// A truncated chain yields a partial result rather than an error; the
// directory has already logged the data-integrity warning.
func (e *Engine) Calculate(ctx context.Context, d models.Donation) ([]models.CommissionLog, error) {
	const op = "calculate commissions"
	if d.ID == "" {
		return nil, apperr.Validation(op, "donation id is required")
	}
	if d.Amount <= 0 {
		return nil, apperr.Validation(op, "donation amount must be greater than zero")
	}

	self, err := e.dir.Node(ctx, d.AttributedUserID)
	if err != nil {
		return nil, err
	}
	chain, err := e.dir.AncestorChain(ctx, d.AttributedUserID)
	if err != nil {
		return nil, err
	}
	if chain.Truncated != hierarchy.TruncatedNone {
		e.log.Warn("commission chain truncated; emitting partial result",
			zap.String("donation_id", d.ID),
			zap.String("user_id", d.AttributedUserID.Hex()),
			zap.String("condition", string(chain.Truncated)),
			zap.Int("ancestors", len(chain.Ancestors)))
	}

	now := e.now()
	row := func(seq int, n hierarchy.Node, pct float64, level string) models.CommissionLog {
		return models.CommissionLog{
			DonationID:           d.ID,
			Sequence:             seq,
			UserID:               n.ID,
			UserRole:             n.Role,
			DonationAmount:       d.Amount,
			CommissionAmount:     Round(d.Amount * pct / 100),
			CommissionPercentage: pct,
			HierarchyLevel:       level,
			Status:               models.CommissionPending,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
	}

	rows := make([]models.CommissionLog, 0, len(chain.Ancestors)+1)
	rows = append(rows, row(0, self, SelfRate, models.LevelSelf))

	last := len(chain.Ancestors) - 1
	for i, anc := range chain.Ancestors {
		isTop := i == last && chain.ReachedTop()
		switch {
		case isTop:
			rows = append(rows, row(i+1, anc, TopRate, models.LevelTop))
		case i == 0:
			rows = append(rows, row(i+1, anc, ParentRate, models.LevelParent))
		default:
			rows = append(rows, row(i+1, anc, AncestorRate, models.LevelAncestor))
		}
	}
	return rows, nil
}

// Distribute computes and stores the rows for d. It is idempotent per
// donation id: if rows already exist they are returned unchanged.
func (e *Engine) Distribute(ctx context.Context, d models.Donation) ([]models.CommissionLog, error) {
	existing, err := e.repo.ListByDonation(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		e.log.Info("commissions already recorded for donation", zap.String("donation_id", d.ID))
		return existing, nil
	}

	rows, err := e.Calculate(ctx, d)
	if err != nil {
		return nil, err
	}
	saved, err := e.repo.InsertMany(ctx, rows)
	if apperr.IsKind(err, apperr.KindConflict) {
		// Lost a race with a concurrent delivery of the same donation.
		return e.repo.ListByDonation(ctx, d.ID)
	}
	if err != nil {
		return nil, err
	}

	var total float64
	for _, r := range saved {
		total += r.CommissionAmount
		e.metrics.CommissionRow(r.HierarchyLevel, r.CommissionAmount)
	}
	e.log.Info("commissions recorded",
		zap.String("donation_id", d.ID),
		zap.String("attributed_user_id", d.AttributedUserID.Hex()),
		zap.Float64("amount", d.Amount),
		zap.Int("rows", len(saved)),
		zap.Float64("total_commission", total))
	return saved, nil
}

// ForDonation returns the recorded rows of a donation in ancestor order.
func (e *Engine) ForDonation(ctx context.Context, donationID string) ([]models.CommissionLog, error) {
	rows, err := e.repo.ListByDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("commissions for donation", "no commissions recorded for donation %q", donationID)
	}
	return rows, nil
}

// Summary totals a donation's commission rows.
type Summary struct {
	DonationAmount   float64 `json:"donation_amount"`
	TotalCommission  float64 `json:"total_commission"`
	OrganizationFund float64 `json:"organization_fund"`
}

// Summarize totals rows for a single donation.
func Summarize(rows []models.CommissionLog) Summary {
	var s Summary
	for _, r := range rows {
		s.DonationAmount = r.DonationAmount
		if r.Status != models.CommissionCancelled {
			s.TotalCommission += r.CommissionAmount
		}
	}
	s.OrganizationFund = s.DonationAmount - s.TotalCommission
	return s
}

// Earnings is a user's commission totals by status.
type Earnings struct {
	UserID    primitive.ObjectID     `json:"user_id"`
	Pending   float64                `json:"pending"`
	Paid      float64                `json:"paid"`
	Failed    float64                `json:"failed"`
	Donations int                    `json:"donations"`
	Rows      []models.CommissionLog `json:"rows"`
}

// EarningsFor returns userID's commission rows and totals.
func (e *Engine) EarningsFor(ctx context.Context, userID primitive.ObjectID) (Earnings, error) {
	rows, err := e.repo.ListByUser(ctx, userID)
	if err != nil {
		return Earnings{}, err
	}
	out := Earnings{UserID: userID, Rows: rows}
	seen := make(map[string]struct{})
	for _, r := range rows {
		switch r.Status {
		case models.CommissionPending:
			out.Pending += r.CommissionAmount
		case models.CommissionPaid:
			out.Paid += r.CommissionAmount
		case models.CommissionFailed:
			out.Failed += r.CommissionAmount
		}
		seen[r.DonationID] = struct{}{}
	}
	out.Donations = len(seen)
	return out, nil
}

// MarkPaid moves a PENDING or FAILED row to PAID.
func (e *Engine) MarkPaid(ctx context.Context, id primitive.ObjectID) (models.CommissionLog, error) {
	return e.repo.Transition(ctx, id,
		[]models.CommissionStatus{models.CommissionPending, models.CommissionFailed},
		models.CommissionPaid, e.now(), "")
}

// MarkFailed moves a PENDING row to FAILED with a reason.
func (e *Engine) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) (models.CommissionLog, error) {
	if reason == "" {
		return models.CommissionLog{}, apperr.Validation("mark commission failed", "a failure reason is required")
	}
	return e.repo.Transition(ctx, id,
		[]models.CommissionStatus{models.CommissionPending},
		models.CommissionFailed, e.now(), reason)
}

// CancelDonation cancels every unpaid row of a refunded donation.
func (e *Engine) CancelDonation(ctx context.Context, donationID string) (int64, error) {
	n, err := e.repo.CancelDonation(ctx, donationID, e.now())
	if err != nil {
		return 0, err
	}
	e.log.Info("donation commissions cancelled", zap.String("donation_id", donationID), zap.Int64("rows", n))
	return n, nil
}
