package propagation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ActiveLister lists active targets for the reconciler.
type ActiveLister interface {
	ListActive(ctx context.Context, typ models.TargetType) ([]models.Target, error)
}

// Reconciler is a background worker that periodically recomputes every
// active target, deepest hierarchy level first, so branches that have not
// seen a new collection since a failed propagation still converge.
type Reconciler struct {
	engine   *Engine
	lister   ActiveLister
	types    []models.TargetType
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewReconciler creates a reconciler that runs every interval.
func NewReconciler(engine *Engine, lister ActiveLister, logger *zap.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{
		engine:   engine,
		lister:   lister,
		types:    []models.TargetType{models.TargetDonationCollection, models.TargetVolunteerRecruitment, models.TargetMemberEnrollment},
		log:      logger,
		interval: interval,
		timeout:  5 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go r.run()
	r.log.Info("target reconciler started", zap.Duration("interval", r.interval))
}

// Stop signals the loop to exit and waits for it.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.log.Info("target reconciler stopped")
}

func (r *Reconciler) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			n, err := r.RunOnce(ctx)
			cancel()
			if err != nil {
				r.log.Error("target reconciliation failed", zap.Error(err))
				continue
			}
			r.log.Debug("target reconciliation finished", zap.Int("targets", n))
		}
	}
}

// RunOnce recomputes all active targets and returns how many were rewritten.
// Per-target failures are logged and skipped.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	updated := 0
	for _, typ := range r.types {
		targets, err := r.lister.ListActive(ctx, typ)
		if err != nil {
			return updated, err
		}

		rank := make(map[primitive.ObjectID]int, len(targets))
		for _, t := range targets {
			if _, ok := rank[t.AssignedTo]; ok {
				continue
			}
			n, err := r.engine.dir.Node(ctx, t.AssignedTo)
			if err != nil {
				rank[t.AssignedTo] = -1
				continue
			}
			rank[t.AssignedTo] = n.Role.Rank()
		}
		sort.SliceStable(targets, func(i, j int) bool {
			return rank[targets[i].AssignedTo] > rank[targets[j].AssignedTo]
		})

		for _, t := range targets {
			if err := ctx.Err(); err != nil {
				return updated, err
			}
			fresh, err := r.engine.targets.Get(ctx, t.ID)
			if err != nil {
				r.log.Warn("reconcile: cannot reload target", zap.String("target_id", t.ID.Hex()), zap.Error(err))
				continue
			}
			if !fresh.Status.IsActive() {
				continue
			}
			if _, err := r.engine.recomputeWithRetry(ctx, fresh); err != nil {
				r.log.Warn("reconcile: recompute failed", zap.String("target_id", t.ID.Hex()), zap.Error(err))
				continue
			}
			updated++
		}
	}
	return updated, nil
}
