// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all audit log routes under the path where this
// router is mounted (typically "/audit" from bootstrap).
//
// Top administrators see every event; everyone else sees only events
// about themselves.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
	})

	return r
}
