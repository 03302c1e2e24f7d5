// internal/app/features/collections/submit.go
package collections

import (
	"net/http"
	"time"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/ledger"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
)

type submitRequest struct {
	// UserID is the collector; empty means the caller.
	UserID      string     `json:"user_id"`
	Amount      float64    `json:"amount"`
	PaymentMode string     `json:"payment_mode"`
	DonorName   string     `json:"donor_name"`
	DonorPhone  string     `json:"donor_phone"`
	DonorEmail  string     `json:"donor_email"`
	Note        string     `json:"note"`
	CollectedAt *time.Time `json:"collected_at,omitempty"`
}

type listResponse struct {
	Collections []models.Transaction `json:"collections"`
}

// HandleSubmit records a pending collection.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "submit collection"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	var in submitRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	userID, err := uierrors.OptionalID("user_id", in.UserID)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	sub := ledger.SubmitInput{
		UserID:      userID,
		Amount:      in.Amount,
		PaymentMode: in.PaymentMode,
		DonorName:   in.DonorName,
		DonorPhone:  in.DonorPhone,
		DonorEmail:  in.DonorEmail,
		Note:        in.Note,
	}
	if in.CollectedAt != nil {
		sub.CollectedAt = *in.CollectedAt
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	tx, err := h.Ledger.Submit(ctx, actor, sub)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	h.Audit.CollectionSubmitted(ctx, r, actor, tx)
	uierrors.WriteJSON(w, http.StatusCreated, tx)
}

// ServeMine lists the caller's collections, newest first.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	if actor.Ref.IsSynthetic() {
		uierrors.WriteJSON(w, http.StatusOK, listResponse{Collections: []models.Transaction{}})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list collections")
	defer cancel()

	txs, err := h.Ledger.ListForUser(ctx, actor.UserID())
	if err != nil {
		uierrors.Write(w, r, h.Log, "list collections", err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Collections: txs})
}

// ServeCollection returns one collection to its collector or a superior.
func (h *Handler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	const op = "view collection"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	id, err := uierrors.PathID(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	tx, err := h.Ledger.View(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, tx)
}
