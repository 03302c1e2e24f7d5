// internal/app/features/collections/routes.go
package collections

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the collection routes (typically under "/collections").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Post("/", h.HandleSubmit)
	r.Get("/mine", h.ServeMine)
	r.Get("/{id}", h.ServeCollection)
	r.Post("/{id}/verify", h.HandleVerify)
	r.Post("/{id}/reject", h.HandleReject)
	return r
}
