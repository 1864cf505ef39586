// README: Device token registration for push notifications.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type DeviceRegistry interface {
	RegisterToken(ctx context.Context, userID types.ID, token, platform string) error
	RemoveToken(ctx context.Context, userID types.ID, token string) error
}

type DeviceHandler struct {
	devices DeviceRegistry
}

func NewDeviceHandler(devices DeviceRegistry) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

type deviceReq struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *DeviceHandler) Register(c *gin.Context) {
	var req deviceReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(c, http.StatusBadRequest, "token is required")
		return
	}
	if err := h.devices.RegisterToken(c.Request.Context(), callerActor(c).ID, strings.TrimSpace(req.Token), req.Platform); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DeviceHandler) Remove(c *gin.Context) {
	if err := h.devices.RemoveToken(c.Request.Context(), callerActor(c).ID, c.Param("token")); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
