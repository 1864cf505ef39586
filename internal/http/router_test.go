// README: Router tests: auth gating, role checks and domain error mapping through real handlers.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "github.com/hammamiayoub/vtc-new-sub000/internal/http"
	"github.com/hammamiayoub/vtc-new-sub000/internal/http/handlers"
	"github.com/hammamiayoub/vtc-new-sub000/internal/infra"
	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/availability"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/booking"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/location"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/matching"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/pricing"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/subscription"
	"github.com/hammamiayoub/vtc-new-sub000/internal/service"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

// tokenTable maps bearer tokens to identities.
type tokenTable map[string]*infra.FirebaseToken

func (t tokenTable) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	tok, ok := t[raw]
	if !ok {
		return nil, assert.AnError
	}
	return tok, nil
}

var tokens = tokenTable{
	"client": {UID: "c1", Claims: map[string]interface{}{}},
	"driver": {UID: "d1", Claims: map[string]interface{}{"role": "driver"}},
}

type fakePlanner struct {
	plan *service.TripPlan
	err  error
}

func (f *fakePlanner) Plan(ctx context.Context, req service.PlanRequest) (*service.TripPlan, error) {
	return f.plan, f.err
}

type fakeSearcher struct {
	res matching.SearchResult
	err error
	got matching.SearchQuery
}

func (f *fakeSearcher) Search(ctx context.Context, q matching.SearchQuery) (matching.SearchResult, error) {
	f.got = q
	return f.res, f.err
}

type fakeBookings struct {
	created    booking.CreateCommand
	transition booking.TransitionCommand
	err        error
}

func (f *fakeBookings) booking() *booking.Booking {
	return &booking.Booking{ID: "bk1", ClientID: f.created.ClientID, DriverID: f.created.DriverID,
		DistanceKm: 116.42, ReturnTrip: true, Price: types.TND(335.29), Status: booking.StatusPending}
}

func (f *fakeBookings) Create(ctx context.Context, cmd booking.CreateCommand) (*booking.Booking, error) {
	f.created = cmd
	if f.err != nil {
		return nil, f.err
	}
	return f.booking(), nil
}

func (f *fakeBookings) Get(ctx context.Context, id types.ID, actor booking.Actor) (*booking.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.booking(), nil
}

func (f *fakeBookings) List(ctx context.Context, actor booking.Actor, lf booking.ListFilter) ([]booking.Booking, error) {
	return []booking.Booking{*f.booking()}, f.err
}

func (f *fakeBookings) History(ctx context.Context, id types.ID, actor booking.Actor) ([]booking.Event, error) {
	return nil, f.err
}

func (f *fakeBookings) move(cmd booking.TransitionCommand) (*booking.Booking, error) {
	f.transition = cmd
	if f.err != nil {
		return nil, f.err
	}
	return f.booking(), nil
}

func (f *fakeBookings) Accept(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error) {
	return f.move(cmd)
}

func (f *fakeBookings) Reject(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error) {
	return f.move(cmd)
}

func (f *fakeBookings) Complete(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error) {
	return f.move(cmd)
}

func (f *fakeBookings) Cancel(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error) {
	return f.move(cmd)
}

type fakeAvailability struct {
	created availability.CreateSlotCommand
}

func (f *fakeAvailability) CreateSlot(ctx context.Context, cmd availability.CreateSlotCommand) (*availability.Slot, error) {
	f.created = cmd
	return &availability.Slot{ID: "s1", DriverID: cmd.DriverID, Date: cmd.Date, IsAvailable: true}, nil
}

func (f *fakeAvailability) ListSlots(ctx context.Context, driverID types.ID, from, to time.Time) ([]availability.Slot, error) {
	return nil, nil
}

func (f *fakeAvailability) DeleteSlot(ctx context.Context, driverID, slotID types.ID) error {
	return availability.ErrSlotNotFound
}

func (f *fakeAvailability) SetAvailable(ctx context.Context, driverID, slotID types.ID, available bool) error {
	return nil
}

type fakeSubscription struct{}

func (fakeSubscription) Status(ctx context.Context, driverID types.ID) (*subscription.Snapshot, error) {
	remaining := 2
	return &subscription.Snapshot{SubscriptionType: subscription.TypeFree, MonthlyAcceptedBookings: 1, CanAcceptMoreBookings: true, RemainingFreeBookings: &remaining}, nil
}

type fakeDevices struct{ registered string }

func (f *fakeDevices) RegisterToken(ctx context.Context, userID types.ID, token, platform string) error {
	f.registered = token
	return nil
}

func (f *fakeDevices) RemoveToken(ctx context.Context, userID types.ID, token string) error {
	return nil
}

type env struct {
	router   *gin.Engine
	planner  *fakePlanner
	searcher *fakeSearcher
	bookings *fakeBookings
	avail    *fakeAvailability
	devices  *fakeDevices
}

func newEnv() *env {
	gin.SetMode(gin.TestMode)
	e := &env{
		planner:  &fakePlanner{},
		searcher: &fakeSearcher{},
		bookings: &fakeBookings{},
		avail:    &fakeAvailability{},
		devices:  &fakeDevices{},
	}
	e.router = httptransport.NewRouter(httptransport.RouterDeps{
		Quotes:   handlers.NewQuoteHandler(e.planner, e.searcher, time.UTC, 25),
		Bookings: handlers.NewBookingHandler(e.bookings, time.UTC),
		Drivers:  handlers.NewDriverHandler(e.avail, fakeSubscription{}, time.UTC),
		Devices:  handlers.NewDeviceHandler(e.devices),
		Verifier: tokens,
		Metrics:  metrics.New(),
	})
	return e
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouter_PublicRoutes(t *testing.T) {
	e := newEnv()
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/health", "", nil).Code)

	e.do(http.MethodGet, "/health", "", nil)
	w := e.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `vtc_http_requests_total{method="GET",path="/health",status="200"}`)
}

func TestRouter_RequiresToken(t *testing.T) {
	e := newEnv()
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/quotes", "", map[string]any{}).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/quotes", "forged", map[string]any{}).Code)
}

func TestQuote_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unresolved", location.ErrAddressUnresolved, http.StatusUnprocessableEntity},
		{"too short", location.ErrAddressTooShort, http.StatusBadRequest},
		{"unknown vehicle", pricing.ErrUnknownVehicleType, http.StatusBadRequest},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.planner.err = tt.err
			w := e.do(http.MethodPost, "/api/quotes", "client", map[string]any{"pickup_address": "Tunis", "destination_address": "x"})
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal error", decode(t, w)["error"])
			}
		})
	}
}

func TestQuote_OK(t *testing.T) {
	e := newEnv()
	e.planner.plan = &service.TripPlan{
		Distance: location.Distance{Km: 116.42, Source: location.SourceHaversine},
		Quote:    pricing.Quote{OneWayDistanceKm: 116.42, Price: types.TND(186.27)},
	}
	w := e.do(http.MethodPost, "/api/quotes", "client", map[string]any{"pickup_address": "Tunis", "destination_address": "Sousse"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	quote := body["quote"].(map[string]any)
	assert.Equal(t, 186.27, quote["price"].(map[string]any)["amount"])
	assert.Nil(t, quote["surcharges"])
	assert.Equal(t, 25.0, body["minimum_distance_km"])

	bad := e.do(http.MethodPost, "/api/quotes", "client", map[string]any{"scheduled_at": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestSearch_StaleIsConflict(t *testing.T) {
	e := newEnv()
	e.searcher.res = matching.SearchResult{Generation: 4}
	e.searcher.err = matching.ErrStaleSearch

	w := e.do(http.MethodPost, "/api/drivers/search", "client", map[string]any{"date": "2026-10-20", "time": "10:00"})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, 4.0, body["generation"])
	assert.Contains(t, body["error"], "superseded")
	assert.Equal(t, "c1", e.searcher.got.ClientKey)

	bad := e.do(http.MethodPost, "/api/drivers/search", "client", map[string]any{"date": "20/10/2026", "time": "10:00"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestBookings_CreateUsesCallerAndIgnoresPrice(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodPost, "/api/bookings", "client", map[string]any{
		"driver_id":           "d1",
		"client_id":           "someone-else",
		"pickup_address":      "Tunis",
		"destination_address": "Sousse",
		"date":                "2026-10-20",
		"time":                "10:00",
		"is_return_trip":      true,
		"price":               1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, types.ID("c1"), e.bookings.created.ClientID)
	assert.Equal(t, types.ID("d1"), e.bookings.created.DriverID)
	assert.Equal(t, time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), e.bookings.created.ScheduledAt)

	body := decode(t, w)
	assert.Equal(t, 232.84, body["display_distance_km"])
	assert.Equal(t, 335.29, body["price"].(map[string]any)["amount"])

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/bookings", "driver", map[string]any{}).Code)
}

func TestBookings_TransitionErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{booking.ErrConflict, http.StatusConflict},
		{booking.ErrInvalidState, http.StatusConflict},
		{booking.ErrForbidden, http.StatusForbidden},
		{subscription.ErrQuotaExhausted, http.StatusForbidden},
		{booking.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		e := newEnv()
		e.bookings.err = tt.err
		w := e.do(http.MethodPost, "/api/bookings/bk1/accept", "driver", nil)
		assert.Equal(t, tt.want, w.Code, "err=%v", tt.err)
	}

	e := newEnv()
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/bookings/bk1/accept", "client", nil).Code)

	w := e.do(http.MethodPost, "/api/bookings/bk1/cancel", "client", map[string]any{"reason": "changed plans"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "changed plans", e.bookings.transition.Reason)
	assert.Equal(t, booking.Actor{ID: "c1", Role: booking.RoleClient}, e.bookings.transition.Actor)
}

func TestDriverRoutes(t *testing.T) {
	e := newEnv()
	slot := map[string]any{"date": "2026-10-20", "start_time": "08:00", "end_time": "18:00"}

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/drivers/me/availability", "client", slot).Code)

	w := e.do(http.MethodPost, "/api/drivers/me/availability", "driver", slot)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, types.ID("d1"), e.avail.created.DriverID)

	list := e.do(http.MethodGet, "/api/drivers/me/availability", "driver", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, []any{}, decode(t, list)["slots"])

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/drivers/me/availability/s9", "driver", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, "/api/drivers/me/availability/s1", "driver", map[string]any{}).Code)

	sub := e.do(http.MethodGet, "/api/drivers/me/subscription", "driver", nil)
	require.Equal(t, http.StatusOK, sub.Code)
	assert.Equal(t, 2.0, decode(t, sub)["remaining_free_bookings"])

	dev := e.do(http.MethodPost, "/api/devices", "client", map[string]any{"token": "fcm-tok", "platform": "android"})
	assert.Equal(t, http.StatusNoContent, dev.Code)
	assert.Equal(t, "fcm-tok", e.devices.registered)
}
