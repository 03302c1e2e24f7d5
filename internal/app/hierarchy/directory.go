// Package hierarchy resolves parent/child relationships between coordinator
// accounts. It is a pure lookup facade over the user store: no business
// rules, no writes.
package hierarchy

import (
	"context"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/metrics"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultMaxDepth bounds every ancestor walk.
const DefaultMaxDepth = 20

// Node is the hierarchy-relevant projection of a user.
type Node struct {
	ID       primitive.ObjectID
	Name     string
	Role     models.Role
	Region   models.Region
	ParentID *primitive.ObjectID
}

// UserSource is the user collaborator the directory reads from.
// GetNode returns an apperr.KindNotFound error for unknown ids.
type UserSource interface {
	GetNode(ctx context.Context, id primitive.ObjectID) (Node, error)
	ChildIDs(ctx context.Context, parentID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// Truncation explains why an ancestor chain stopped before reaching a
// user without a parent.
type Truncation string

const (
	TruncatedNone     Truncation = ""
	TruncatedCycle    Truncation = "HierarchyCycleDetected"
	TruncatedTooDeep  Truncation = "HierarchyTooDeep"
	TruncatedDangling Truncation = "HierarchyDanglingParent"
)

// Chain is an ordered ancestor list, immediate parent first.
type Chain struct {
	Ancestors []Node
	Truncated Truncation
}

// ReachedTop reports whether the last ancestor is a genuine top-of-hierarchy
// user (no parent of its own).
func (c Chain) ReachedTop() bool {
	return len(c.Ancestors) > 0 && c.Truncated == TruncatedNone
}

// IDs returns the ancestor ids in chain order.
func (c Chain) IDs() []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(c.Ancestors))
	for i, n := range c.Ancestors {
		out[i] = n.ID
	}
	return out
}

// Directory answers hierarchy questions.
type Directory struct {
	users    UserSource
	log      *zap.Logger
	metrics  *metrics.Metrics
	maxDepth int
}

// Option configures a Directory.
type Option func(*Directory)

// WithMaxDepth overrides DefaultMaxDepth. Non-positive values are ignored.
func WithMaxDepth(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// WithMetrics records truncations as hierarchy anomalies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Directory) { d.metrics = m }
}

// New constructs a Directory over users.
func New(users UserSource, logger *zap.Logger, opts ...Option) *Directory {
	d := &Directory{users: users, log: logger, maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(d)
	}
	return d
}

// MaxDepth returns the configured walk bound.
func (d *Directory) MaxDepth() int { return d.maxDepth }

// Node loads the hierarchy projection of a single user.
func (d *Directory) Node(ctx context.Context, id primitive.ObjectID) (Node, error) {
	return d.users.GetNode(ctx, id)
}

// Parent returns the direct superior of userID, if any.
func (d *Directory) Parent(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, bool, error) {
	n, err := d.users.GetNode(ctx, userID)
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	if n.ParentID == nil || n.ParentID.IsZero() {
		return primitive.NilObjectID, false, nil
	}
	return *n.ParentID, true, nil
}

// Children returns the direct reports of userID.
func (d *Directory) Children(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return d.users.ChildIDs(ctx, userID)
}

// AncestorChain walks parent references outward from userID.
//
// The walk is iterative with a visited set. A repeated id truncates the chain
// (HierarchyCycleDetected); more than MaxDepth ancestors truncates it
// (HierarchyTooDeep); a parent id that no longer resolves truncates it
// before that id (HierarchyDanglingParent). Truncations are logged, never
// returned as errors. The only error is failing to load userID itself or a
// store failure.
func (d *Directory) AncestorChain(ctx context.Context, userID primitive.ObjectID) (Chain, error) {
	start, err := d.users.GetNode(ctx, userID)
	if err != nil {
		return Chain{}, err
	}

	var chain Chain
	visited := map[primitive.ObjectID]struct{}{start.ID: {}}
	cur := start

	for cur.ParentID != nil && !cur.ParentID.IsZero() {
		pid := *cur.ParentID

		if _, seen := visited[pid]; seen {
			chain.Truncated = TruncatedCycle
			d.warn(chain.Truncated, userID, pid, len(chain.Ancestors))
			break
		}
		if len(chain.Ancestors) >= d.maxDepth {
			chain.Truncated = TruncatedTooDeep
			d.warn(chain.Truncated, userID, pid, len(chain.Ancestors))
			break
		}

		parent, err := d.users.GetNode(ctx, pid)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				chain.Truncated = TruncatedDangling
				d.warn(chain.Truncated, userID, pid, len(chain.Ancestors))
				break
			}
			return chain, err
		}

		visited[pid] = struct{}{}
		chain.Ancestors = append(chain.Ancestors, parent)
		cur = parent
	}
	return chain, nil
}

// IsAncestor reports whether ancestorID appears in userID's ancestor chain.
func (d *Directory) IsAncestor(ctx context.Context, ancestorID, userID primitive.ObjectID) (bool, error) {
	chain, err := d.AncestorChain(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, n := range chain.Ancestors {
		if n.ID == ancestorID {
			return true, nil
		}
	}
	return false, nil
}

// IsDirectChild reports whether childID's parent is parentID.
func (d *Directory) IsDirectChild(ctx context.Context, parentID, childID primitive.ObjectID) (bool, error) {
	pid, ok, err := d.Parent(ctx, childID)
	if err != nil || !ok {
		return false, err
	}
	return pid == parentID, nil
}

func (d *Directory) warn(t Truncation, userID, at primitive.ObjectID, depth int) {
	kind := metrics.AnomalyDangling
	switch t {
	case TruncatedCycle:
		kind = metrics.AnomalyCycle
	case TruncatedTooDeep:
		kind = metrics.AnomalyTooDeep
	}
	d.metrics.HierarchyAnomaly(kind)
	d.log.Warn("ancestor chain truncated",
		zap.String("condition", string(t)),
		zap.String("user_id", userID.Hex()),
		zap.String("at_id", at.Hex()),
		zap.Int("depth", depth),
		zap.Int("max_depth", d.maxDepth))
}
