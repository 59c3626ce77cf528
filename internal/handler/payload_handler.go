package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"exnotify/payloadhub/internal/service"
	"exnotify/payloadhub/pkg/response"
)

// PayloadQueryParam is the query parameter carrying the content key, matching
// the links handed out by the analysis page.
const PayloadQueryParam = "payload"

type PayloadHandler struct {
	payloadService service.PayloadService
	logger         *zap.Logger
}

func NewPayloadHandler(payloadService service.PayloadService, logger *zap.Logger) *PayloadHandler {
	return &PayloadHandler{payloadService: payloadService, logger: logger}
}

type CompressRequest struct {
	// Payload is decoded loosely so a non-string value gets a validation
	// error instead of a JSON binding error.
	Payload interface{} `json:"payload"`
}

// Compress stores the posted payload and returns its content key.
func (h *PayloadHandler) Compress(c *gin.Context) {
	var req CompressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return
	}

	payload, ok := req.Payload.(string)
	if !ok || payload == "" {
		response.BadRequest(c, service.ErrEmptyPayload.Error())
		return
	}

	key, err := h.payloadService.Compress(c.Request.Context(), payload)
	if err != nil {
		h.logger.Error("compress failed", zap.Error(err))
		response.InternalError(c, "storage unavailable")
		return
	}

	response.Success(c, key)
}

// Decompress resolves ?payload=<key> back to the stored payload.
func (h *PayloadHandler) Decompress(c *gin.Context) {
	key := c.Query(PayloadQueryParam)
	if key == "" {
		response.BadRequest(c, "Missing payload parameter")
		return
	}

	payload, err := h.payloadService.Decompress(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayloadNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, service.ErrEmptyKey):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("decompress failed", zap.String("key", key), zap.Error(err))
			response.InternalError(c, "internal server error")
		}
		return
	}

	response.Success(c, payload)
}
