package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/aresmaps/mars_relief/internal/scheduler"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

type Handler struct {
	validate  *validator.Validate
	scheduler *scheduler.Scheduler
	logger    logger.Logger
}

func NewHandler(validate *validator.Validate, s *scheduler.Scheduler, l logger.Logger) *Handler {
	return &Handler{
		validate:  validate,
		scheduler: s,
		logger:    l,
	}
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	c.JSON(code, response{
		Success: code < 400,
		Message: message,
		Data:    data,
	})
}

func (h *Handler) RespondWithError(c *gin.Context, code int, err error) {
	if code >= 500 {
		h.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", code,
			"error", err,
		)
	}

	h.RespondWithJSON(c, code, err.Error(), nil)
}

func (h *Handler) Healthz(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "ok", nil)
}
