package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transactions implements ledger.Repository.
type Transactions struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.Transaction
}

// NewTransactions returns an empty transaction set.
func NewTransactions() *Transactions {
	return &Transactions{rows: make(map[primitive.ObjectID]models.Transaction)}
}

func (s *Transactions) Insert(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	s.rows[tx.ID] = tx
	return tx, nil
}

func (s *Transactions) Get(_ context.Context, id primitive.ObjectID) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	if !ok {
		return models.Transaction{}, apperr.NotFound("get transaction", "transaction %s not found", id.Hex())
	}
	return tx, nil
}

func (s *Transactions) Decide(_ context.Context, id primitive.ObjectID, to models.TransactionStatus, by *primitive.ObjectID, at time.Time, reason string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	if !ok {
		return models.Transaction{}, apperr.NotFound("decide transaction", "transaction %s not found", id.Hex())
	}
	if tx.Status != models.TransactionPending {
		return models.Transaction{}, apperr.Conflict("decide transaction", "transaction is already %s", tx.Status)
	}
	tx.Status = to
	tx.VerifiedBy = by
	tx.VerifiedAt = &at
	tx.RejectionReason = reason
	tx.UpdatedAt = at
	s.rows[id] = tx
	return tx, nil
}

func (s *Transactions) Reopen(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	if !ok || tx.Status != models.TransactionVerified {
		return apperr.Conflict("reopen transaction", "transaction %s is not verified", id.Hex())
	}
	tx.Status = models.TransactionPending
	tx.VerifiedBy, tx.VerifiedAt = nil, nil
	s.rows[id] = tx
	return nil
}

func (s *Transactions) Retarget(_ context.Context, id primitive.ObjectID, targetID *primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.rows[id]
	if !ok || tx.Status != models.TransactionPending {
		return apperr.Conflict("retarget transaction", "transaction %s is not pending", id.Hex())
	}
	tx.TargetID = targetID
	s.rows[id] = tx
	return nil
}

func (s *Transactions) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.rows {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
