// internal/app/features/commissions/payouts.go
package commissions

import (
	"context"
	"net/http"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/commission"
	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/htmlsanitize"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type failedRequest struct {
	Reason string `json:"reason"`
}

// ServeMine returns the caller's commission rows with totals by status.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	if actor.Ref.IsSynthetic() {
		uierrors.WriteJSON(w, http.StatusOK, commission.Earnings{Rows: []models.CommissionLog{}})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list commissions")
	defer cancel()

	earnings, err := h.Engine.EarningsFor(ctx, actor.UserID())
	if err != nil {
		uierrors.Write(w, r, h.Log, "list commissions", err)
		return
	}
	if earnings.Rows == nil {
		earnings.Rows = []models.CommissionLog{}
	}
	uierrors.WriteJSON(w, http.StatusOK, earnings)
}

// HandlePaid marks a commission row as paid out.
func (h *Handler) HandlePaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "mark commission paid", func(ctx context.Context, id primitive.ObjectID) (models.CommissionLog, error) {
		return h.Engine.MarkPaid(ctx, id)
	})
}

// HandleFailed records a failed payout with a reason.
func (h *Handler) HandleFailed(w http.ResponseWriter, r *http.Request) {
	var in failedRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, h.Log, "mark commission failed", err)
		return
	}
	h.transition(w, r, "mark commission failed", func(ctx context.Context, id primitive.ObjectID) (models.CommissionLog, error) {
		return h.Engine.MarkFailed(ctx, id, htmlsanitize.PlainText(in.Reason))
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context, primitive.ObjectID) (models.CommissionLog, error)) {
	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	if err := requireTopAdmin(op, actor); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	id, err := uierrors.PathID(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	row, err := apply(ctx, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	if row.Status == models.CommissionPaid {
		h.Audit.CommissionPaid(ctx, r, actor, row)
	} else {
		h.Audit.CommissionFailed(ctx, r, actor, row)
	}
	uierrors.WriteJSON(w, http.StatusOK, row)
}
