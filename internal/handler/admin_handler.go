package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"exnotify/payloadhub/internal/service"
	"exnotify/payloadhub/pkg/response"
)

type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListPayloads returns every live record held by the replica store.
func (h *AdminHandler) ListPayloads(c *gin.Context) {
	response.Success(c, h.adminService.ListPayloads(c.Request.Context()))
}

func (h *AdminHandler) GetPayload(c *gin.Context) {
	payload, err := h.adminService.GetPayload(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, service.ErrPayloadNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"key": c.Param("key"), "value": payload})
}

func (h *AdminHandler) DeletePayload(c *gin.Context) {
	if err := h.adminService.DeletePayload(c.Request.Context(), c.Param("key")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

func (h *AdminHandler) PurgeExpired(c *gin.Context) {
	n, err := h.adminService.PurgeExpired(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to purge expired payloads")
		return
	}
	response.Success(c, gin.H{"purged": n})
}
