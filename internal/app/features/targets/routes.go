// internal/app/features/targets/routes.go
package targets

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the target routes under the base path (typically "/targets").
// Hierarchy checks happen in the targeting service; the router only
// requires a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Post("/", h.HandleAssign)
	r.Get("/mine", h.ServeMine)
	r.Get("/{id}", h.ServeTarget)
	r.Post("/{id}/divide", h.HandleDivide)
	r.Post("/{id}/cancel", h.HandleCancel)
	return r
}
