// Package leaderboard ranks coordinators by collected amount.
package leaderboard

import (
	"context"
	"sort"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Scope selects which targets participate in a ranking.
type Scope string

const (
	ScopeTeam     Scope = "team"
	ScopeRegion   Scope = "region"
	ScopeNational Scope = "national"
)

// ParseScope defaults "" to national.
func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case "", ScopeNational:
		return ScopeNational, true
	case ScopeTeam, ScopeRegion:
		return Scope(s), true
	}
	return "", false
}

// Default and maximum result sizes.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query is what a Source filters targets by.
type Query struct {
	Type     models.TargetType
	Statuses []models.TargetStatus
	// UserIDs restricts to these assignees when non-nil.
	UserIDs []primitive.ObjectID
	// Region restricts to targets whose region matches; zero means any.
	Region models.Region
}

// Standing is one user's aggregate over the matching targets.
type Standing struct {
	UserID         primitive.ObjectID
	Name           string
	Role           models.Role
	TotalCollected float64
	TargetAmount   float64
}

// Source aggregates targets per assignee.
type Source interface {
	Standings(ctx context.Context, q Query) ([]Standing, error)
}

// Request is a leaderboard query.
type Request struct {
	Scope     Scope
	Requester models.Principal
	Type      models.TargetType
	Region    models.Region
	Limit     int
}

// Entry is one ranked row.
type Entry struct {
	Rank                  int                `json:"rank"`
	UserID                primitive.ObjectID `json:"user_id"`
	Name                  string             `json:"name"`
	Role                  models.Role        `json:"role"`
	TotalCollected        float64            `json:"total_collected"`
	TargetAmount          float64            `json:"target_amount"`
	AchievementPercentage float64            `json:"achievement_percentage"`
}

// Aggregator answers ranking queries.
type Aggregator struct {
	src   Source
	dir   *hierarchy.Directory
	cache Cache
	log   *zap.Logger
}

// New constructs an Aggregator. cache may be nil.
func New(src Source, dir *hierarchy.Directory, cache Cache, logger *zap.Logger) *Aggregator {
	return &Aggregator{src: src, dir: dir, cache: cache, log: logger}
}

// Rank returns the ranked entries for req, at most req.Limit of them.
func (a *Aggregator) Rank(ctx context.Context, req Request) ([]Entry, error) {
	const op = "rank leaderboard"

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if req.Type == "" {
		req.Type = models.TargetDonationCollection
	}

	q := Query{Type: req.Type, Statuses: []models.TargetStatus{models.TargetPending, models.TargetInProgress}}
	switch req.Scope {
	case ScopeTeam:
		if req.Requester.Ref.IsSynthetic() {
			return nil, apperr.Validation(op, "team scope requires a real user")
		}
		kids, err := a.dir.Children(ctx, req.Requester.UserID())
		if err != nil {
			return nil, err
		}
		if len(kids) == 0 {
			return []Entry{}, nil
		}
		q.UserIDs = kids
	case ScopeRegion:
		if req.Region.IsZero() {
			return nil, apperr.Validation(op, "region scope requires at least one region filter")
		}
		q.Region = req.Region
	case ScopeNational:
		q.Statuses = append(q.Statuses, models.TargetCompleted)
	default:
		return nil, apperr.Validation(op, "unknown scope %q", req.Scope)
	}

	load := func(ctx context.Context) ([]Entry, error) {
		st, err := a.src.Standings(ctx, q)
		if err != nil {
			return nil, err
		}
		return Order(st), nil
	}

	var (
		ranked []Entry
		err    error
	)
	if a.cache != nil && req.Scope != ScopeTeam {
		ranked, err = a.cache.Get(ctx, cacheKey(req.Scope, q), load)
	} else {
		ranked, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Order sorts standings by total collected descending, then name, then id,
// and assigns contiguous 1-based ranks.
func Order(st []Standing) []Entry {
	out := make([]Entry, len(st))
	for i, s := range st {
		pct := 0.0
		if s.TargetAmount > 0 {
			pct = targeting.Progress(models.Target{TargetValue: s.TargetAmount, PersonalCollection: s.TotalCollected})
		}
		out[i] = Entry{
			UserID:                s.UserID,
			Name:                  s.Name,
			Role:                  s.Role,
			TotalCollected:        s.TotalCollected,
			TargetAmount:          s.TargetAmount,
			AchievementPercentage: pct,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalCollected != out[j].TotalCollected {
			return out[i].TotalCollected > out[j].TotalCollected
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID.Hex() < out[j].UserID.Hex()
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
