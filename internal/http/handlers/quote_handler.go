// README: Quote and driver search handlers (preview flow before booking).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamiayoub/vtc-new-sub000/internal/http/middleware"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/availability"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/matching"
	"github.com/hammamiayoub/vtc-new-sub000/internal/service"
)

type TripPlanner interface {
	Plan(ctx context.Context, req service.PlanRequest) (*service.TripPlan, error)
}

type DriverSearcher interface {
	Search(ctx context.Context, q matching.SearchQuery) (matching.SearchResult, error)
}

type QuoteHandler struct {
	planner  TripPlanner
	searcher DriverSearcher
	loc      *time.Location
	minKm    float64
}

func NewQuoteHandler(planner TripPlanner, searcher DriverSearcher, loc *time.Location, minDistanceKm float64) *QuoteHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &QuoteHandler{planner: planner, searcher: searcher, loc: loc, minKm: minDistanceKm}
}

type tripReq struct {
	PickupAddress      string   `json:"pickup_address"`
	DestinationAddress string   `json:"destination_address"`
	PickupLat          *float64 `json:"pickup_lat"`
	PickupLng          *float64 `json:"pickup_lng"`
	DestinationLat     *float64 `json:"destination_lat"`
	DestinationLng     *float64 `json:"destination_lng"`
	VehicleType        string   `json:"vehicle_type"`
	ScheduledAt        string   `json:"scheduled_at"`
	Date               string   `json:"date"`
	Time               string   `json:"time"`
	ReturnTrip         bool     `json:"is_return_trip"`
	Notes              string   `json:"notes"`
	DriverID           string   `json:"driver_id"`
}

type quoteResp struct {
	*service.TripPlan
	MinimumDistanceKm float64 `json:"minimum_distance_km"`
}

// Quote previews the price. Trips under the minimum are still quoted with
// below_minimum set; booking creation enforces the minimum.
func (h *QuoteHandler) Quote(c *gin.Context) {
	var req tripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	at, err := parseScheduled(req.ScheduledAt, req.Date, req.Time, h.loc)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	plan, err := h.planner.Plan(c.Request.Context(), service.PlanRequest{
		PickupAddress:      req.PickupAddress,
		DestinationAddress: req.DestinationAddress,
		Pickup:             pointOf(req.PickupLat, req.PickupLng),
		Destination:        pointOf(req.DestinationLat, req.DestinationLng),
		VehicleType:        req.VehicleType,
		ScheduledAt:        at,
		ReturnTrip:         req.ReturnTrip,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quoteResp{TripPlan: plan, MinimumDistanceKm: h.minKm})
}

type searchReq struct {
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	VehicleType   string   `json:"vehicle_type"`
	PickupAddress string   `json:"pickup_address"`
	PickupLat     *float64 `json:"pickup_lat"`
	PickupLng     *float64 `json:"pickup_lng"`
}

// SearchDrivers ranks drivers available at date/time. A search superseded by
// a newer one from the same caller answers 409.
func (h *QuoteHandler) SearchDrivers(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if _, err := availability.ParseClock(req.Time); err != nil {
		writeDomainError(c, err)
		return
	}
	res, err := h.searcher.Search(c.Request.Context(), matching.SearchQuery{
		ClientKey:     middleware.CallerUID(c),
		Date:          date,
		Time:          req.Time,
		VehicleType:   req.VehicleType,
		Pickup:        pointOf(req.PickupLat, req.PickupLng),
		PickupAddress: req.PickupAddress,
	})
	if err != nil {
		if statusFor(err) == http.StatusConflict {
			writeJSON(c, http.StatusConflict, gin.H{"error": err.Error(), "generation": res.Generation})
			return
		}
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
