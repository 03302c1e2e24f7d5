package authz

import (
	"net/http"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
)

// HasAnyRole reports whether the current request's principal has any of the
// given roles. Returns false if no principal is present.
func HasAnyRole(r *http.Request, roles ...models.Role) bool {
	p, ok := Principal(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if p.Role == want {
			return true
		}
	}
	return false
}

// Role returns the current principal's role and whether one is present.
func Role(r *http.Request) (models.Role, bool) {
	p, ok := Principal(r)
	return p.Role, ok
}
