package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aresmaps/mars_relief/internal/infrastructure/http/v1/dto"
)

// Invalidate drops all cached renders of one tile.
func (h *Handler) Invalidate(c *gin.Context) {
	var req dto.InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, err)
		return
	}

	removed := h.scheduler.Invalidate(req.Key())
	h.logger.Info("cache invalidation requested", "tile", req.Key().String(), "removed", removed)

	h.RespondWithJSON(c, http.StatusOK, "invalidated", dto.InvalidateResponse{Removed: removed})
}
