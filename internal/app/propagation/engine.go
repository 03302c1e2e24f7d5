// Package propagation keeps every ancestor's team collection consistent with
// its subtree after a verified collection.
//
// Each level is recomputed from source (the sum of the direct reports'
// targets) rather than adjusted by a delta, so repeated or out-of-order runs
// converge on the same value.
package propagation

import (
	"context"
	"errors"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/metrics"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Targets is the subset of the target repository propagation needs.
type Targets interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Target, error)
	Active(ctx context.Context, userID primitive.ObjectID, typ models.TargetType) (*models.Target, error)
	ForUsers(ctx context.Context, userIDs []primitive.ObjectID, typ models.TargetType, from, to time.Time) ([]models.Target, error)
	Replace(ctx context.Context, t models.Target) (models.Target, error)
}

// Outcome labels a propagation run.
type Outcome string

const (
	// OutcomeReachedEnd: every ancestor in the chain was updated.
	OutcomeReachedEnd Outcome = "reached_end"
	// OutcomeNoTarget: an ancestor without an active target ended the walk.
	OutcomeNoTarget Outcome = "no_target"
	// OutcomeFailed: a store error or unrecovered conflict ended the walk.
	OutcomeFailed Outcome = "failed"
)

// Report describes what a propagation run did.
type Report struct {
	RunID     string
	Updated   []primitive.ObjectID // target ids, innermost first
	StoppedAt primitive.ObjectID   // user id where the walk ended early, if any
	Outcome   Outcome
	Err       error
}

// Engine walks ancestors and recomputes their team collections.
type Engine struct {
	dir     *hierarchy.Directory
	targets Targets
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New constructs an Engine.
func New(dir *hierarchy.Directory, targets Targets, logger *zap.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		dir:     dir,
		targets: targets,
		log:     logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source (tests).
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Propagate updates the ancestors of userID after a verified collection on a
// target of typ. Levels are processed strictly outward, so a failure leaves
// only outer levels stale. It never returns an error: failures are logged
// and reported, and the next run on the branch repairs them.
func (e *Engine) Propagate(ctx context.Context, userID primitive.ObjectID, typ models.TargetType) Report {
	rep := Report{RunID: uuid.NewString(), Outcome: OutcomeReachedEnd}
	log := e.log.With(zap.String("run_id", rep.RunID), zap.String("origin_user_id", userID.Hex()))

	chain, err := e.dir.AncestorChain(ctx, userID)
	if err != nil {
		rep.Outcome, rep.Err = OutcomeFailed, err
		log.Error("propagation failed: cannot resolve ancestors", zap.Error(err))
		e.metrics.PropagationRun(string(rep.Outcome), 0)
		return rep
	}

	for _, anc := range chain.Ancestors {
		t, err := e.targets.Active(ctx, anc.ID, typ)
		if err != nil {
			rep.Outcome, rep.Err, rep.StoppedAt = OutcomeFailed, err, anc.ID
			log.Error("propagation failed: cannot load ancestor target",
				zap.String("ancestor_id", anc.ID.Hex()), zap.Error(err))
			break
		}
		// COMPLETED and CANCELLED targets are final; the walk ends there.
		if t == nil || !t.Status.IsActive() {
			rep.Outcome, rep.StoppedAt = OutcomeNoTarget, anc.ID
			log.Debug("propagation stopped: ancestor has no active target",
				zap.String("ancestor_id", anc.ID.Hex()))
			break
		}

		saved, err := e.recomputeWithRetry(ctx, *t)
		if err != nil {
			rep.Outcome, rep.Err, rep.StoppedAt = OutcomeFailed, err, anc.ID
			log.Error("propagation failed: cannot update ancestor target",
				zap.String("ancestor_id", anc.ID.Hex()),
				zap.String("target_id", t.ID.Hex()),
				zap.Error(err))
			break
		}
		rep.Updated = append(rep.Updated, saved.ID)
	}

	e.metrics.PropagationRun(string(rep.Outcome), len(rep.Updated))
	log.Debug("propagation finished",
		zap.String("outcome", string(rep.Outcome)),
		zap.Int("levels_updated", len(rep.Updated)),
		zap.String("chain_truncated", string(chain.Truncated)))
	return rep
}

// Recompute sets t's team collection to the sum of its owner's direct
// reports' targets and persists it. Calling it twice with no intervening
// writes yields the same value. COMPLETED and CANCELLED targets are
// returned unchanged.
func (e *Engine) Recompute(ctx context.Context, t models.Target) (models.Target, error) {
	if !t.Status.IsActive() {
		return t, nil
	}
	team, err := e.TeamCollection(ctx, t)
	if err != nil {
		return models.Target{}, err
	}

	now := e.now()
	t.TeamCollection = team
	t.Status = targeting.NextStatus(t)
	if t.Status == models.TargetCompleted && t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	t.IsActive = t.Status.IsActive()
	t.UpdatedAt = now
	return e.targets.Replace(ctx, t)
}

// TeamCollection sums the total collection of every non-cancelled target of
// t's type, held by a direct report of t's owner, whose window overlaps t's.
func (e *Engine) TeamCollection(ctx context.Context, t models.Target) (float64, error) {
	children, err := e.dir.Children(ctx, t.AssignedTo)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 0, nil
	}
	childTargets, err := e.targets.ForUsers(ctx, children, t.Type, t.StartDate, t.EndDate)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, ct := range childTargets {
		if ct.ID == t.ID {
			continue
		}
		sum += ct.TotalCollection()
	}
	return sum, nil
}

// recomputeWithRetry retries once on a version conflict, re-reading the
// target so the recompute starts from the latest stored copy.
func (e *Engine) recomputeWithRetry(ctx context.Context, t models.Target) (models.Target, error) {
	saved, err := e.Recompute(ctx, t)
	if !errors.Is(err, apperr.ErrVersionConflict) {
		return saved, err
	}

	fresh, getErr := e.targets.Get(ctx, t.ID)
	if getErr != nil {
		e.metrics.VersionConflict(false)
		return models.Target{}, getErr
	}
	saved, err = e.Recompute(ctx, fresh)
	e.metrics.VersionConflict(err == nil)
	if err != nil {
		e.log.Warn("target version conflict persisted after retry",
			zap.String("target_id", t.ID.Hex()), zap.Error(err))
	}
	return saved, err
}
