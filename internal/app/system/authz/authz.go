// Package authz answers role questions about the request's principal.
// Ownership and hierarchy checks live in the engines.
package authz

import (
	"net/http"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
)

// Principal returns the request's resolved principal. A missing user, a
// malformed id or an unknown role all yield ok=false so callers fail closed.
func Principal(r *http.Request) (models.Principal, bool) {
	p, err := auth.CurrentPrincipal(r)
	if err != nil {
		return models.Principal{}, false
	}
	return p, true
}

// IsTopAdmin reports whether the principal may act anywhere in the hierarchy.
func IsTopAdmin(r *http.Request) bool {
	p, ok := Principal(r)
	return ok && p.IsTopAdmin()
}

// IsDemo reports whether the principal is the synthetic demo administrator.
func IsDemo(r *http.Request) bool {
	p, ok := Principal(r)
	return ok && p.Ref.IsSynthetic()
}
