// README: Driver self-service handlers: availability slots and subscription status.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/availability"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/subscription"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type AvailabilityService interface {
	CreateSlot(ctx context.Context, cmd availability.CreateSlotCommand) (*availability.Slot, error)
	ListSlots(ctx context.Context, driverID types.ID, from, to time.Time) ([]availability.Slot, error)
	DeleteSlot(ctx context.Context, driverID, slotID types.ID) error
	SetAvailable(ctx context.Context, driverID, slotID types.ID, available bool) error
}

type SubscriptionStatus interface {
	Status(ctx context.Context, driverID types.ID) (*subscription.Snapshot, error)
}

type DriverHandler struct {
	availability AvailabilityService
	subscription SubscriptionStatus
	loc          *time.Location
	now          func() time.Time
}

func NewDriverHandler(avail AvailabilityService, sub SubscriptionStatus, loc *time.Location) *DriverHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DriverHandler{availability: avail, subscription: sub, loc: loc, now: time.Now}
}

type slotReq struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable *bool  `json:"is_available"`
}

func (h *DriverHandler) CreateSlot(c *gin.Context) {
	var req slotReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	slot, err := h.availability.CreateSlot(c.Request.Context(), availability.CreateSlotCommand{
		DriverID:    callerActor(c).ID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, slot)
}

// ListSlots defaults to the next 30 days when ?from / ?to are omitted.
func (h *DriverHandler) ListSlots(c *gin.Context) {
	today := h.now().In(h.loc)
	from, to := today, today.AddDate(0, 0, 30)
	if v := c.Query("from"); v != "" {
		d, err := availability.ParseDate(v)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		from = d
	}
	if v := c.Query("to"); v != "" {
		d, err := availability.ParseDate(v)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		to = d
	}
	slots, err := h.availability.ListSlots(c.Request.Context(), callerActor(c).ID, from, to)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if slots == nil {
		slots = []availability.Slot{}
	}
	writeJSON(c, http.StatusOK, gin.H{"slots": slots})
}

func (h *DriverHandler) DeleteSlot(c *gin.Context) {
	if err := h.availability.DeleteSlot(c.Request.Context(), callerActor(c).ID, types.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type toggleReq struct {
	IsAvailable *bool `json:"is_available"`
}

func (h *DriverHandler) ToggleSlot(c *gin.Context) {
	var req toggleReq
	if err := c.ShouldBindJSON(&req); err != nil || req.IsAvailable == nil {
		writeError(c, http.StatusBadRequest, "is_available is required")
		return
	}
	if err := h.availability.SetAvailable(c.Request.Context(), callerActor(c).ID, types.ID(c.Param("id")), *req.IsAvailable); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "is_available": *req.IsAvailable})
}

func (h *DriverHandler) Subscription(c *gin.Context) {
	snap, err := h.subscription.Status(c.Request.Context(), callerActor(c).ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, snap)
}
