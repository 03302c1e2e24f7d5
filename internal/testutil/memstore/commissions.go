package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type commissionKey struct {
	donation string
	seq      int
}

// Commissions implements commission.Repository.
type Commissions struct {
	mu    sync.Mutex
	rows  map[primitive.ObjectID]models.CommissionLog
	keys  map[commissionKey]primitive.ObjectID
	order []primitive.ObjectID
}

// NewCommissions returns an empty commission set.
func NewCommissions() *Commissions {
	return &Commissions{
		rows: make(map[primitive.ObjectID]models.CommissionLog),
		keys: make(map[commissionKey]primitive.ObjectID),
	}
}

func (s *Commissions) InsertMany(_ context.Context, rows []models.CommissionLog) ([]models.CommissionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if _, dup := s.keys[commissionKey{r.DonationID, r.Sequence}]; dup {
			return nil, apperr.Conflict("insert commissions", "commissions for donation %q already recorded", r.DonationID)
		}
	}
	out := make([]models.CommissionLog, len(rows))
	for i, r := range rows {
		if r.ID.IsZero() {
			r.ID = primitive.NewObjectID()
		}
		s.rows[r.ID] = r
		s.keys[commissionKey{r.DonationID, r.Sequence}] = r.ID
		s.order = append(s.order, r.ID)
		out[i] = r
	}
	return out, nil
}

func (s *Commissions) ListByDonation(_ context.Context, donationID string) ([]models.CommissionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CommissionLog
	for _, id := range s.order {
		if r := s.rows[id]; r.DonationID == donationID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *Commissions) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.CommissionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CommissionLog
	for _, id := range s.order {
		if r := s.rows[id]; r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Commissions) Get(_ context.Context, id primitive.ObjectID) (models.CommissionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return models.CommissionLog{}, apperr.NotFound("get commission", "commission %s not found", id.Hex())
	}
	return r, nil
}

func (s *Commissions) Transition(_ context.Context, id primitive.ObjectID, from []models.CommissionStatus, to models.CommissionStatus, at time.Time, reason string) (models.CommissionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return models.CommissionLog{}, apperr.NotFound("update commission", "commission %s not found", id.Hex())
	}
	if !slices.Contains(from, r.Status) {
		return models.CommissionLog{}, apperr.Conflict("update commission", "commission is %s", r.Status)
	}
	r.Status = to
	r.UpdatedAt = at
	if to == models.CommissionPaid {
		r.PaidAt = &at
		r.FailureReason = ""
	}
	if reason != "" {
		r.FailureReason = reason
	}
	s.rows[id] = r
	return r, nil
}

func (s *Commissions) CancelDonation(_ context.Context, donationID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range s.order {
		r := s.rows[id]
		if r.DonationID != donationID {
			continue
		}
		if r.Status == models.CommissionPending || r.Status == models.CommissionFailed {
			r.Status = models.CommissionCancelled
			r.UpdatedAt = at
			s.rows[id] = r
			n++
		}
	}
	return n, nil
}
