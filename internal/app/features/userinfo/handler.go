// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's identity and place in the hierarchy.
type Handler struct {
	Dir *hierarchy.Directory
	Log *zap.Logger
}

// NewHandler creates a new userinfo handler.
func NewHandler(dir *hierarchy.Directory, logger *zap.Logger) *Handler {
	return &Handler{Dir: dir, Log: logger}
}

type ancestor struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

type response struct {
	SignedIn  bool           `json:"signed_in"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	LoginID   string         `json:"login_id,omitempty"`
	Role      string         `json:"role,omitempty"`
	Region    *models.Region `json:"region,omitempty"`
	Ancestors []ancestor     `json:"ancestors,omitempty"`
	Truncated string         `json:"chain_truncated,omitempty"`
}

// ServeUserInfo handles GET /me.
//
// Signed-out callers get {"signed_in": false} with 200 so clients can check
// the session without handling an error. The synthetic demo administrator
// has no hierarchy position and is reported without one.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.WriteJSON(w, http.StatusOK, response{SignedIn: false})
		return
	}
	p, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}

	out := response{
		SignedIn: true,
		ID:       user.ID,
		Name:     user.Name,
		LoginID:  user.LoginID,
		Role:     string(p.Role),
	}

	if id, ok := p.Ref.ID(); ok {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "userinfo")
		defer cancel()

		node, err := h.Dir.Node(ctx, id)
		if err != nil {
			uierrors.Write(w, r, h.Log, "load user node", err)
			return
		}
		chain, err := h.Dir.AncestorChain(ctx, id)
		if err != nil {
			uierrors.Write(w, r, h.Log, "load ancestor chain", err)
			return
		}
		if !node.Region.IsZero() {
			out.Region = &node.Region
		}
		for _, a := range chain.Ancestors {
			out.Ancestors = append(out.Ancestors, ancestor{ID: a.ID.Hex(), Name: a.Name, Role: a.Role})
		}
		out.Truncated = string(chain.Truncated)
	}

	uierrors.WriteJSON(w, http.StatusOK, out)
}
