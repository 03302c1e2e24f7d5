// internal/app/features/commissions/donations.go
package commissions

import (
	"net/http"
	"strings"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/commission"
	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/inputval"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type donationRequest struct {
	DonationID       string  `json:"donation_id" validate:"required,max=128" label:"Donation id"`
	AttributedUserID string  `json:"attributed_user_id" validate:"required,objectid" label:"Attributed user"`
	Amount           float64 `json:"amount" validate:"gt=0" label:"Amount"`
}

type donationResponse struct {
	DonationID string                 `json:"donation_id"`
	Summary    commission.Summary     `json:"summary"`
	Rows       []models.CommissionLog `json:"rows"`
}

type cancelResponse struct {
	DonationID string `json:"donation_id"`
	Cancelled  int64  `json:"cancelled"`
}

func requireTopAdmin(op string, actor models.Principal) error {
	if !actor.IsTopAdmin() {
		return apperr.Permission(op, "only administrators may manage commissions")
	}
	return nil
}

// HandleDonation accepts a confirmed donation and records its commission
// rows. Re-delivering the same donation id returns the stored rows.
func (h *Handler) HandleDonation(w http.ResponseWriter, r *http.Request) {
	const op = "record donation"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	if err := requireTopAdmin(op, actor); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	var in donationRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	in.DonationID = strings.TrimSpace(in.DonationID)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Write(w, r, h.Log, op, apperr.Validation(op, "%s", res.All()))
		return
	}
	userID, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.AttributedUserID))
	d := models.Donation{ID: in.DonationID, AttributedUserID: userID, Amount: in.Amount}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	rows, err := h.Engine.Distribute(ctx, d)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	sum := commission.Summarize(rows)
	h.Audit.CommissionsDistributed(ctx, r, actor, d, len(rows), sum.TotalCommission)
	uierrors.WriteJSON(w, http.StatusOK, donationResponse{DonationID: d.ID, Summary: sum, Rows: rows})
}

// ServeDonation returns the commission rows of one donation.
func (h *Handler) ServeDonation(w http.ResponseWriter, r *http.Request) {
	const op = "get donation commissions"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	if err := requireTopAdmin(op, actor); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	donationID := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	rows, err := h.Engine.ForDonation(ctx, donationID)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, donationResponse{DonationID: donationID, Summary: commission.Summarize(rows), Rows: rows})
}

// HandleCancelDonation cancels the unpaid rows of a refunded donation.
func (h *Handler) HandleCancelDonation(w http.ResponseWriter, r *http.Request) {
	const op = "cancel donation commissions"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	if err := requireTopAdmin(op, actor); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	donationID := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	if _, err := h.Engine.ForDonation(ctx, donationID); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	n, err := h.Engine.CancelDonation(ctx, donationID)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	h.Audit.CommissionsCancelled(ctx, r, actor, donationID, n)
	uierrors.WriteJSON(w, http.StatusOK, cancelResponse{DonationID: donationID, Cancelled: n})
}
