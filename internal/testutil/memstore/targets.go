package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/leaderboard"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Targets implements targeting.Repository, propagation.Targets and
// leaderboard.Source.
type Targets struct {
	mu    sync.Mutex
	rows  map[primitive.ObjectID]models.Target
	order []primitive.ObjectID
	users *Users

	// BeforeReplace, when set, runs before every Replace and may return an
	// error to simulate contention or store failures.
	BeforeReplace func(t models.Target) error
	// FailGet, when set, makes Get return this error.
	FailGet error
}

// NewTargets returns an empty target set. users supplies names and roles
// for Standings and may be nil.
func NewTargets(users *Users) *Targets {
	return &Targets{rows: make(map[primitive.ObjectID]models.Target), users: users}
}

// Put stores t unchanged, bypassing every check. Tests use it to seed state.
func (s *Targets) Put(t models.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.rows[t.ID] = t
}

// Bump increments the stored version of id, simulating a concurrent writer.
func (s *Targets) Bump(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.rows[id]
	t.Version++
	s.rows[id] = t
}

// Len reports how many targets are stored.
func (s *Targets) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Targets) Get(_ context.Context, id primitive.ObjectID) (models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGet != nil {
		return models.Target{}, s.FailGet
	}
	t, ok := s.rows[id]
	if !ok {
		return models.Target{}, apperr.NotFound("get target", "target %s not found", id.Hex())
	}
	return t, nil
}

func (s *Targets) activeLocked(userID primitive.ObjectID, typ models.TargetType) *models.Target {
	for _, id := range s.order {
		t := s.rows[id]
		if t.AssignedTo == userID && t.Type == typ && t.IsActive {
			return &t
		}
	}
	return nil
}

func (s *Targets) Active(_ context.Context, userID primitive.ObjectID, typ models.TargetType) (*models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(userID, typ), nil
}

func (s *Targets) Current(_ context.Context, userID primitive.ObjectID, typ models.TargetType, at time.Time) (*models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.activeLocked(userID, typ); t != nil {
		return t, nil
	}
	var best *models.Target
	for _, id := range s.order {
		t := s.rows[id]
		if t.AssignedTo != userID || t.Type != typ || t.Status != models.TargetCompleted || t.EndDate.Before(at) {
			continue
		}
		if best == nil || t.EndDate.After(best.EndDate) {
			c := t
			best = &c
		}
	}
	return best, nil
}

func (s *Targets) ForUsers(_ context.Context, userIDs []primitive.ObjectID, typ models.TargetType, from, to time.Time) ([]models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []models.Target
	for _, id := range s.order {
		t := s.rows[id]
		if !want[t.AssignedTo] || t.Type != typ || t.Status == models.TargetCancelled {
			continue
		}
		if t.StartDate.After(to) || t.EndDate.Before(from) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Targets) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Target
	for _, id := range s.order {
		if t := s.rows[id]; t.AssignedTo == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Targets) ListActive(_ context.Context, typ models.TargetType) ([]models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Target
	for _, id := range s.order {
		if t := s.rows[id]; t.IsActive && t.Type == typ {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Targets) Insert(_ context.Context, t models.Target) (models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.IsActive && s.activeLocked(t.AssignedTo, t.Type) != nil {
		return models.Target{}, apperr.Conflict("insert target", "user already has an active %s target", t.Type)
	}
	s.rows[t.ID] = t
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *Targets) Replace(_ context.Context, t models.Target) (models.Target, error) {
	if s.BeforeReplace != nil {
		if err := s.BeforeReplace(t); err != nil {
			return models.Target{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(t)
}

func (s *Targets) replaceLocked(t models.Target) (models.Target, error) {
	cur, ok := s.rows[t.ID]
	if !ok {
		return models.Target{}, apperr.NotFound("replace target", "target %s not found", t.ID.Hex())
	}
	if cur.Version != t.Version {
		return models.Target{}, apperr.ErrVersionConflict
	}
	t.Version++
	s.rows[t.ID] = t
	return t, nil
}

func (s *Targets) Subdivide(_ context.Context, parent models.Target, children []models.Target) ([]models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[parent.ID]
	if !ok {
		return nil, apperr.NotFound("subdivide target", "target %s not found", parent.ID.Hex())
	}
	if cur.Version != parent.Version {
		return nil, apperr.ErrVersionConflict
	}
	for _, c := range children {
		if c.IsActive && s.activeLocked(c.AssignedTo, c.Type) != nil {
			return nil, apperr.Conflict("subdivide target", "user %s already has an active %s target", c.AssignedTo.Hex(), c.Type)
		}
	}
	if _, err := s.replaceLocked(parent); err != nil {
		return nil, err
	}
	out := make([]models.Target, len(children))
	for i, c := range children {
		s.rows[c.ID] = c
		s.order = append(s.order, c.ID)
		out[i] = c
	}
	return out, nil
}

// Standings implements leaderboard.Source.
func (s *Targets) Standings(_ context.Context, q leaderboard.Query) ([]leaderboard.Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make(map[models.TargetStatus]bool, len(q.Statuses))
	for _, st := range q.Statuses {
		statuses[st] = true
	}
	var users map[primitive.ObjectID]bool
	if q.UserIDs != nil {
		users = make(map[primitive.ObjectID]bool, len(q.UserIDs))
		for _, id := range q.UserIDs {
			users[id] = true
		}
	}

	agg := make(map[primitive.ObjectID]*leaderboard.Standing)
	var seen []primitive.ObjectID
	for _, id := range s.order {
		t := s.rows[id]
		if t.Type != q.Type || !statuses[t.Status] {
			continue
		}
		if users != nil && !users[t.AssignedTo] {
			continue
		}
		if !t.Region.Matches(q.Region) {
			continue
		}
		st, ok := agg[t.AssignedTo]
		if !ok {
			st = &leaderboard.Standing{UserID: t.AssignedTo}
			if s.users != nil {
				if n, ok := s.users.lookup(t.AssignedTo); ok {
					st.Name, st.Role = n.Name, n.Role
				}
			}
			agg[t.AssignedTo] = st
			seen = append(seen, t.AssignedTo)
		}
		st.TotalCollected += t.TotalCollection()
		st.TargetAmount += t.TargetValue
	}
	out := make([]leaderboard.Standing, 0, len(seen))
	for _, id := range seen {
		out = append(out, *agg[id])
	}
	return out, nil
}
