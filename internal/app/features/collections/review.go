// internal/app/features/collections/review.go
package collections

import (
	"net/http"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

// HandleVerify approves a pending collection and credits the collector's
// current target. The response carries the credited target when there was one.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "verify collection"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	id, err := uierrors.PathID(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	v, err := h.Ledger.Verify(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	h.Audit.CollectionVerified(ctx, r, actor, v.Transaction)
	uierrors.WriteJSON(w, http.StatusOK, v)
}

// HandleReject declines a pending collection. A reason is required.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	const op = "reject collection"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	id, err := uierrors.PathID(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	var in rejectRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	tx, err := h.Ledger.Reject(ctx, actor, id, in.Reason)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	h.Audit.CollectionRejected(ctx, r, actor, tx)
	uierrors.WriteJSON(w, http.StatusOK, tx)
}
