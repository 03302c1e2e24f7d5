package health

import (
	"context"
	"net/http"

	uierrors "github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/errors"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// DBPinger is satisfied by *mongo.Client.
type DBPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// CachePinger is satisfied by *redis.Client.
type CachePinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB    DBPinger
	Cache CachePinger // nil when the leaderboard cache is disabled
	Log   *zap.Logger
}

// NewHandler constructs a health Handler. cache may be nil.
func NewHandler(db DBPinger, cache CachePinger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Cache: cache, Log: logger}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "cache":"connected" }
//
// A cache outage only degrades the response; rankings fall back to the
// database. On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "connected", Cache: "disabled"}

	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		uierrors.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if h.Cache != nil {
		if err := h.Cache.Ping(ctx).Err(); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Cache = "unavailable"
		} else {
			resp.Cache = "connected"
		}
	}

	uierrors.WriteJSON(w, http.StatusOK, resp)
}
