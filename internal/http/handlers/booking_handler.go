// README: Booking handlers: create, read, list and status transitions.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/booking"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type BookingService interface {
	Create(ctx context.Context, cmd booking.CreateCommand) (*booking.Booking, error)
	Get(ctx context.Context, id types.ID, actor booking.Actor) (*booking.Booking, error)
	List(ctx context.Context, actor booking.Actor, f booking.ListFilter) ([]booking.Booking, error)
	History(ctx context.Context, id types.ID, actor booking.Actor) ([]booking.Event, error)
	Accept(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error)
	Reject(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error)
	Complete(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error)
	Cancel(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error)
}

type BookingHandler struct {
	bookings BookingService
	loc      *time.Location
}

func NewBookingHandler(svc BookingService, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{bookings: svc, loc: loc}
}

type bookingResp struct {
	*booking.Booking
	DisplayDistanceKm float64 `json:"display_distance_km"`
}

func present(b *booking.Booking) bookingResp {
	return bookingResp{Booking: b, DisplayDistanceKm: b.DisplayDistanceKm()}
}

// Create books a driver for the caller. Any price in the body is ignored.
func (h *BookingHandler) Create(c *gin.Context) {
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
	cmd := booking.CreateCommand{
		ClientID:           callerActor(c).ID,
		DriverID:           types.ID(req.DriverID),
		PickupAddress:      req.PickupAddress,
		DestinationAddress: req.DestinationAddress,
		Pickup:             pointOf(req.PickupLat, req.PickupLng),
		Destination:        pointOf(req.DestinationLat, req.DestinationLng),
		VehicleType:        req.VehicleType,
		ReturnTrip:         req.ReturnTrip,
		Notes:              req.Notes,
	}
	if at != nil {
		cmd.ScheduledAt = *at
	}
	b, err := h.bookings.Create(c.Request.Context(), cmd)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, present(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")), callerActor(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, present(b))
}

func (h *BookingHandler) History(c *gin.Context) {
	events, err := h.bookings.History(c.Request.Context(), types.ID(c.Param("id")), callerActor(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"events": events})
}

// List supports ?status=, ?from=YYYY-MM-DD and ?limit=.
func (h *BookingHandler) List(c *gin.Context) {
	var f booking.ListFilter
	if v := c.Query("status"); v != "" {
		st, ok := booking.ParseStatus(v)
		if !ok {
			writeError(c, http.StatusBadRequest, "unknown status")
			return
		}
		f.Status = &st
	}
	if v := c.Query("from"); v != "" {
		from, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			writeError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		f.From = &from
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	list, err := h.bookings.List(c.Request.Context(), callerActor(c), f)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]bookingResp, 0, len(list))
	for i := range list {
		out = append(out, present(&list[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": out})
}

type transitionReq struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) transition(op func(context.Context, booking.TransitionCommand) (*booking.Booking, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transitionReq
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				writeError(c, http.StatusBadRequest, "invalid json")
				return
			}
		}
		b, err := op(c.Request.Context(), booking.TransitionCommand{
			BookingID: types.ID(c.Param("id")),
			Actor:     callerActor(c),
			Reason:    req.Reason,
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, present(b))
	}
}

func (h *BookingHandler) Accept() gin.HandlerFunc   { return h.transition(h.bookings.Accept) }
func (h *BookingHandler) Reject() gin.HandlerFunc   { return h.transition(h.bookings.Reject) }
func (h *BookingHandler) Complete() gin.HandlerFunc { return h.transition(h.bookings.Complete) }
func (h *BookingHandler) Cancel() gin.HandlerFunc   { return h.transition(h.bookings.Cancel) }
