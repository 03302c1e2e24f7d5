// internal/app/features/commissions/routes.go
package commissions

import (
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

var payoutRoles = []string{string(models.RoleAdmin), string(models.RoleNationalPresident)}

// DonationRoutes mounts donation intake (typically under "/donations").
// Only top administrators and the intake service account may post donations.
func DonationRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(payoutRoles...))

	r.Post("/", h.HandleDonation)
	r.Get("/{id}/commissions", h.ServeDonation)
	r.Post("/{id}/cancel", h.HandleCancelDonation)
	return r
}

// Routes mounts the commission routes (typically under "/commissions").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/mine", h.ServeMine)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(payoutRoles...))
		pr.Post("/{id}/paid", h.HandlePaid)
		pr.Post("/{id}/failed", h.HandleFailed)
	})
	return r
}
