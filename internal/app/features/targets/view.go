// internal/app/features/targets/view.go
package targets

import (
	"net/http"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
)

// ServeTarget returns one target. The owner, the assigner, any superior of
// the owner and top administrators may read it.
func (h *Handler) ServeTarget(w http.ResponseWriter, r *http.Request) {
	const op = "get target"

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

	v, err := h.Targets.Get(ctx, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	allowed, err := h.Targets.CanView(ctx, actor, v.Target)
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	if !allowed {
		uierrors.Write(w, r, h.Log, op, apperr.Permission(op, "target belongs to another branch of the hierarchy"))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, v)
}

// ServeMine lists the signed-in user's targets, newest first.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	if actor.Ref.IsSynthetic() {
		uierrors.WriteJSON(w, http.StatusOK, listResponse{Targets: []targeting.View{}})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list targets")
	defer cancel()

	views, err := h.Targets.ListForUser(ctx, actor.UserID())
	if err != nil {
		uierrors.Write(w, r, h.Log, "list targets", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Targets: views})
}
