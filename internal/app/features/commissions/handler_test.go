package commissions_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/commission"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/features/commissions"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/hierarchy"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/store/audit"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auditlog"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/domain/models"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil"
	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }

type recordingSink struct{ events []audit.Event }

func (s *recordingSink) Log(_ context.Context, e audit.Event) error {
	s.events = append(s.events, e)
	return nil
}

type fixture struct {
	h     *commissions.Handler
	audit *recordingSink

	central, state, zone, vol primitive.ObjectID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memstore.NewUsers()
	f := &fixture{audit: &recordingSink{}}
	f.central = users.Add("Central", models.RoleNationalPresident, nil)
	f.state = users.Add("State", models.RoleStateCoordinator, ptr(f.central))
	f.zone = users.Add("Zone", models.RoleZoneCoordinator, ptr(f.state))
	f.vol = users.Add("Volunteer", models.RoleVolunteer, ptr(f.zone))

	engine := commission.New(hierarchy.New(users, zap.NewNop()), memstore.NewCommissions(), zap.NewNop(), nil)
	al := auditlog.New(f.audit, zap.NewNop(), auditlog.Config{Mode: auditlog.ModeDB})
	f.h = commissions.NewHandler(engine, al, zap.NewNop())
	return f
}

type donationResponse struct {
	DonationID string                 `json:"donation_id"`
	Summary    commission.Summary     `json:"summary"`
	Rows       []models.CommissionLog `json:"rows"`
}

func (f *fixture) donate(t *testing.T, id string, amount float64) donationResponse {
	t.Helper()
	body := map[string]any{"donation_id": id, "attributed_user_id": f.vol.Hex(), "amount": amount}
	rec := testutil.NewRecorder()
	f.h.HandleDonation(rec, testutil.NewJSONRequest("POST", "/donations", body, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	var out donationResponse
	rec.DecodeJSON(t, &out)
	return out
}

func TestHandleDonation(t *testing.T) {
	f := newFixture(t)
	out := f.donate(t, "don-1", 1000)

	require.Len(t, out.Rows, 4)
	assert.Equal(t, models.LevelSelf, out.Rows[0].HierarchyLevel)
	assert.Equal(t, 50.0, out.Rows[1].CommissionAmount)
	assert.Equal(t, 20.0, out.Rows[2].CommissionAmount)
	assert.Equal(t, 150.0, out.Rows[3].CommissionAmount)
	assert.Equal(t, 220.0, out.Summary.TotalCommission)
	assert.Equal(t, 780.0, out.Summary.OrganizationFund)

	again := f.donate(t, "don-1", 1000)
	assert.Equal(t, out.Rows[1].ID, again.Rows[1].ID, "re-delivery must not create new rows")
}

func TestHandleDonation_Rejections(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		user   testutil.TestUser
		body   map[string]any
		status int
	}{
		{"coordinator", testutil.UserAs(f.zone, models.RoleZoneCoordinator), map[string]any{"donation_id": "d", "attributed_user_id": f.vol.Hex(), "amount": 10}, http.StatusForbidden},
		{"missing id", testutil.AdminUser(), map[string]any{"attributed_user_id": f.vol.Hex(), "amount": 10}, http.StatusBadRequest},
		{"blank id", testutil.AdminUser(), map[string]any{"donation_id": "  ", "attributed_user_id": f.vol.Hex(), "amount": 10}, http.StatusBadRequest},
		{"negative amount", testutil.AdminUser(), map[string]any{"donation_id": "d", "attributed_user_id": f.vol.Hex(), "amount": -1}, http.StatusBadRequest},
		{"unknown user", testutil.AdminUser(), map[string]any{"donation_id": "d", "attributed_user_id": primitive.NewObjectID().Hex(), "amount": 10}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			f.h.HandleDonation(rec, testutil.NewJSONRequest("POST", "/donations", tt.body, tt.user))
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestServeDonation(t *testing.T) {
	f := newFixture(t)
	f.donate(t, "don-7", 500)

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/x", testutil.AdminUser()), "id", "don-7")
	rec := testutil.NewRecorder()
	f.h.ServeDonation(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"donation_id":"don-7"`)

	req = testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/x", testutil.AdminUser()), "id", "missing")
	rec = testutil.NewRecorder()
	f.h.ServeDonation(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestPayoutLifecycle(t *testing.T) {
	f := newFixture(t)
	out := f.donate(t, "don-2", 1000)
	parentRow := out.Rows[1]

	post := func(path string, handler http.HandlerFunc, body any, user testutil.TestUser) *testutil.ResponseRecorder {
		req := testutil.WithChiURLParam(testutil.NewJSONRequest("POST", path, body, user), "id", parentRow.ID.Hex())
		rec := testutil.NewRecorder()
		handler(rec, req)
		return rec
	}

	post("/paid", f.h.HandlePaid, nil, testutil.UserAs(f.zone, models.RoleZoneCoordinator)).AssertStatus(t, http.StatusForbidden)
	post("/failed", f.h.HandleFailed, map[string]any{"reason": ""}, testutil.AdminUser()).AssertStatus(t, http.StatusBadRequest)

	rec := post("/failed", f.h.HandleFailed, map[string]any{"reason": "bank rejected"}, testutil.AdminUser())
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"FAILED"`)

	rec = post("/paid", f.h.HandlePaid, nil, testutil.AdminUser())
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"PAID"`)

	post("/paid", f.h.HandlePaid, nil, testutil.AdminUser()).AssertStatus(t, http.StatusConflict)

	types := make([]string, 0, len(f.audit.events))
	for _, e := range f.audit.events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{audit.EventCommissionsDistributed, audit.EventCommissionFailed, audit.EventCommissionPaid}, types)
}

func TestHandleCancelDonation(t *testing.T) {
	f := newFixture(t)
	out := f.donate(t, "don-3", 1000)

	paid := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/x", testutil.AdminUser()), "id", out.Rows[3].ID.Hex())
	f.h.HandlePaid(testutil.NewRecorder(), paid)

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/x", testutil.AdminUser()), "id", "don-3")
	rec := testutil.NewRecorder()
	f.h.HandleCancelDonation(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"cancelled":3`)
}

func TestServeMine(t *testing.T) {
	f := newFixture(t)
	f.donate(t, "don-4", 1000)
	f.donate(t, "don-5", 2000)

	rec := testutil.NewRecorder()
	f.h.ServeMine(rec, testutil.NewAuthenticatedRequest("GET", "/commissions/mine", testutil.UserAs(f.zone, models.RoleZoneCoordinator)))
	rec.AssertStatus(t, http.StatusOK)

	var e commission.Earnings
	rec.DecodeJSON(t, &e)
	assert.Equal(t, 150.0, e.Pending)
	assert.Equal(t, 2, e.Donations)
	assert.Len(t, e.Rows, 2)
}
