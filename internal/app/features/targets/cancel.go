// internal/app/features/targets/cancel.go
package targets

import (
	"net/http"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
)

// HandleCancel cancels a non-terminal target.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	const op = "cancel target"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	id, err := uierrors.PathID(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	t, err := h.Targets.Cancel(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	h.Audit.TargetCancelled(ctx, r, actor, t)
	uierrors.WriteJSON(w, http.StatusOK, targeting.NewView(t, t.UpdatedAt))
}
