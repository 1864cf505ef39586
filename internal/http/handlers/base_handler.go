// README: Base handler utilities (JSON helpers, caller identity, domain error mapping).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamiayoub/vtc-new-sub000/internal/http/middleware"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/availability"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/booking"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/location"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/matching"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/pricing"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/subscription"
	"github.com/hammamiayoub/vtc-new-sub000/internal/service"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, location.ErrAddressTooShort),
		errors.Is(err, pricing.ErrUnknownVehicleType),
		errors.Is(err, pricing.ErrInvalidDistance),
		errors.Is(err, service.ErrSameEndpoints),
		errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidTime),
		errors.Is(err, availability.ErrInvalidWindow),
		errors.Is(err, availability.ErrDriverRequired),
		errors.Is(err, matching.ErrInvalidSearch),
		errors.Is(err, matching.ErrClientKeyMissing),
		errors.Is(err, booking.ErrClientRequired),
		errors.Is(err, booking.ErrDriverRequired),
		errors.Is(err, booking.ErrScheduleRequired),
		errors.Is(err, booking.ErrScheduleInPast):
		return http.StatusBadRequest
	case errors.Is(err, location.ErrAddressUnresolved),
		errors.Is(err, pricing.ErrBelowMinimumDistance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrForbidden),
		errors.Is(err, subscription.ErrQuotaExhausted):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, booking.ErrDriverNotFound),
		errors.Is(err, availability.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, matching.ErrStaleSearch),
		errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrDriverUnavailable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeDomainError answers with the sentinel text; unmapped errors are hidden
// behind a generic message and attached to the gin context for logging.
func writeDomainError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		writeError(c, status, "internal error")
		return
	}
	writeError(c, status, err.Error())
}

func callerActor(c *gin.Context) booking.Actor {
	return booking.Actor{
		ID:   types.ID(middleware.CallerUID(c)),
		Role: booking.Role(middleware.CallerRole(c)),
	}
}

// pointOf returns nil unless both coordinates are present.
func pointOf(lat, lng *float64) *types.Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &types.Point{Lat: *lat, Lng: *lng}
}

// parseScheduled accepts RFC 3339, or a "YYYY-MM-DD" date plus "HH:MM" time in loc.
func parseScheduled(at, date, clock string, loc *time.Location) (*time.Time, error) {
	switch {
	case at != "":
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, booking.ErrScheduleRequired
		}
		return &t, nil
	case date != "" && clock != "":
		t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
		if err != nil {
			return nil, booking.ErrScheduleRequired
		}
		return &t, nil
	}
	return nil, nil
}
