// internal/app/features/leaderboard/handler.go
package leaderboard

import (
	"net/http"
	"strconv"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/leaderboard"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/normalize"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves ranked standings.
type Handler struct {
	Board *leaderboard.Aggregator
	Log   *zap.Logger
}

// NewHandler constructs a leaderboard Handler.
func NewHandler(board *leaderboard.Aggregator, logger *zap.Logger) *Handler {
	return &Handler{Board: board, Log: logger}
}

// Routes mounts GET / (typically under "/leaderboard").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeLeaderboard)
	return r
}

type response struct {
	Scope   leaderboard.Scope   `json:"scope"`
	Type    models.TargetType   `json:"type"`
	Region  models.Region       `json:"region"`
	Entries []leaderboard.Entry `json:"entries"`
}

// ServeLeaderboard ranks users by collected amount.
//
// Query parameters: scope (team|region|national), type, state, zone,
// district, block and limit.
func (h *Handler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "rank leaderboard"

	actor, ok := uierrors.Principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	scope, ok := leaderboard.ParseScope(normalize.Status(q.Get("scope")))
	if !ok {
		uierrors.Write(w, r, h.Log, op, apperr.Validation(op, "unknown scope %q", q.Get("scope")))
		return
	}
	typ, ok := models.ParseTargetType(normalize.QueryParam(q.Get("type")))
	if !ok {
		uierrors.Write(w, r, h.Log, op, apperr.Validation(op, "unknown target type %q", q.Get("type")))
		return
	}
	limit := 0
	if raw := normalize.QueryParam(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			uierrors.Write(w, r, h.Log, op, apperr.Validation(op, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	region := models.Region{
		State:    normalize.Filter(q.Get("state")),
		Zone:     normalize.Filter(q.Get("zone")),
		District: normalize.Filter(q.Get("district")),
		Block:    normalize.Filter(q.Get("block")),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	entries, err := h.Board.Rank(ctx, leaderboard.Request{
		Scope:     scope,
		Requester: actor,
		Type:      typ,
		Region:    region,
		Limit:     limit,
	})
	if err != nil {
		uierrors.Write(w, r, h.Log, op, err)
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	uierrors.WriteJSON(w, http.StatusOK, response{Scope: scope, Type: typ, Region: region, Entries: entries})
}
