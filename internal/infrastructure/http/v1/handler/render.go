package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aresmaps/mars_relief/internal/infrastructure/http/v1/dto"
)

// Render synthesizes a shaded relief image for the requested tile and
// returns it as PNG. Identical in-flight requests share one render.
func (h *Handler) Render(c *gin.Context) {
	var req dto.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, err)
		return
	}

	res, err := h.scheduler.Render(c.Request.Context(), req.Key(), req.Params)
	if err != nil {
		h.respondWithRenderError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", res.PNG)
}
