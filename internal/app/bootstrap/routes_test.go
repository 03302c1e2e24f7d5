package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/commission"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/leaderboard"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/ledger"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/propagation"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/metrics"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/targeting"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memServices wires the engines over in-memory stores.
func memServices(users *memstore.Users) *Services {
	nop := zap.NewNop()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	targets := memstore.NewTargets(users)
	dir := hierarchy.New(users, nop, hierarchy.WithMetrics(m))
	svc := targeting.New(targets, dir, nop)
	prop := propagation.New(dir, targets, nop, m)

	return &Services{
		Registry:    reg,
		Metrics:     m,
		Directory:   dir,
		Targets:     svc,
		Propagation: prop,
		Ledger:      ledger.New(memstore.NewTransactions(), svc, prop, dir, nop),
		Commissions: commission.New(dir, memstore.NewCommissions(), nop, m),
		Leaderboard: leaderboard.New(targets, dir, nil, nop),
	}
}

func testRouter(t *testing.T, users *memstore.Users, cfg AppConfig) http.Handler {
	t.Helper()
	sm, err := auth.NewSessionManager(cfg.SessionKey, cfg.SessionName, "", cfg.SessionMaxAge, false, zap.NewNop())
	require.NoError(t, err)
	return newRouter(DBDeps{Services: memServices(users)}, cfg, sm, zap.NewNop())
}

func serve(h http.Handler, r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRouter_Fallbacks(t *testing.T) {
	h := testRouter(t, memstore.NewUsers(), validConfig())

	rec := serve(h, testutil.NewRequest("GET", "/no/such/thing"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, `"error":"not_found"`)

	rec = serve(h, testutil.NewRequest("DELETE", "/forbidden"))
	rec.AssertStatus(t, http.StatusMethodNotAllowed)

	serve(h, testutil.NewRequest("GET", "/forbidden")).AssertStatus(t, http.StatusForbidden)
	serve(h, testutil.NewRequest("GET", "/unauthorized")).AssertStatus(t, http.StatusUnauthorized)
}

func TestRouter_Metrics(t *testing.T) {
	h := testRouter(t, memstore.NewUsers(), validConfig())

	rec := serve(h, testutil.NewRequest("GET", "/metrics"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "go_goroutines")
}

func TestRouter_FeaturesRequireSession(t *testing.T) {
	h := testRouter(t, memstore.NewUsers(), validConfig())

	for _, path := range []string{"/targets/mine", "/collections/mine", "/commissions/mine", "/leaderboard"} {
		t.Run(path, func(t *testing.T) {
			serve(h, testutil.NewRequest("GET", path)).AssertStatus(t, http.StatusUnauthorized)
		})
	}
}

func TestRouter_SignedIn(t *testing.T) {
	users := memstore.NewUsers()
	np := users.Add("Central", models.RoleNationalPresident, nil)
	vol := users.Add("Volunteer", models.RoleVolunteer, &np)
	h := testRouter(t, users, validConfig())

	volunteer := testutil.UserAs(vol, models.RoleVolunteer)
	serve(h, testutil.NewAuthenticatedRequest("GET", "/me", volunteer)).AssertStatus(t, http.StatusOK)
	serve(h, testutil.NewAuthenticatedRequest("GET", "/targets/mine", volunteer)).AssertStatus(t, http.StatusOK)
	serve(h, testutil.NewAuthenticatedRequest("GET", "/leaderboard", volunteer)).AssertStatus(t, http.StatusOK)

	// Donation intake is limited to top administrators.
	body := map[string]any{"donation_id": "don-1", "amount": 1000, "attributed_user_id": vol.Hex()}
	serve(h, testutil.NewJSONRequest("POST", "/donations", body, volunteer)).AssertStatus(t, http.StatusForbidden)
}

func TestRouter_RateLimitsWrites(t *testing.T) {
	cfg := validConfig()
	cfg.WriteRateLimit = 1
	cfg.WriteRateWindow = time.Hour
	h := testRouter(t, memstore.NewUsers(), cfg)

	// The limiter runs before authentication, so the first write is
	// counted even though it is rejected as unauthenticated.
	serve(h, testutil.NewRequest("POST", "/collections")).AssertStatus(t, http.StatusUnauthorized)
	rec := serve(h, testutil.NewRequest("POST", "/collections"))
	rec.AssertStatus(t, http.StatusTooManyRequests)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		serve(h, testutil.NewRequest("GET", "/me")).AssertStatus(t, http.StatusOK)
	}
}

func TestLimitWrites(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := limitWrites(blocked)(ok)

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodOptions, http.StatusOK},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodPut, http.StatusTooManyRequests},
		{http.MethodDelete, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/x", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
