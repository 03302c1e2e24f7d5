// internal/app/features/errors/errors.go
//
// Package errors writes JSON error responses and serves the /unauthorized
// and /forbidden endpoints along with the router's 404 and 405 bodies.
package errors

import (
	"net/http"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
)

// Handler is the errors feature handler.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

type statusBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	SignedIn bool   `json:"signed_in"`
	Role     string `json:"role,omitempty"`
}

// Forbidden answers GET /forbidden.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	u, signed := auth.CurrentUser(r)
	body := statusBody{Error: "permission", Message: "You don't have permission to do that.", SignedIn: signed}
	if signed {
		body.Role = u.Role
	}
	WriteJSON(w, http.StatusForbidden, body)
}

// Unauthorized answers GET /unauthorized.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusUnauthorized, statusBody{Error: "unauthorized", Message: "Please sign in to continue."})
}

// NotFound is the router's fallback for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, Body{Error: "not_found", Message: "No such endpoint."})
}

// MethodNotAllowed is the router's fallback for a known path with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, Body{Error: "method_not_allowed", Message: r.Method + " is not supported here."})
}
