package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aresmaps/mars_relief/internal/loader"
	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/internal/pool"
	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/internal/scheduler"
)

var (
	ErrFailedToDecodeRequestBody = errors.New("failed to decode request body")
	InternalServerError          = errors.New("server encountered a problem and could not process your request")
)

// statusClientClosedRequest follows the nginx convention for requests
// abandoned by the caller.
const statusClientClosedRequest = 499

// respondWithRenderError maps pipeline failures onto HTTP statuses.
// Retriable conditions carry a Retry-After hint.
func (h *Handler) respondWithRenderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, loader.ErrUnavailable):
		h.RespondWithError(c, http.StatusNotFound, err)
	case errors.Is(err, loader.ErrCorrupt), errors.Is(err, mesh.ErrDegenerate):
		h.RespondWithError(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, scheduler.ErrInvalidParams):
		h.RespondWithError(c, http.StatusBadRequest, err)
	case errors.Is(err, scheduler.ErrOverloaded):
		c.Header("Retry-After", "1")
		h.RespondWithError(c, http.StatusTooManyRequests, err)
	case errors.Is(err, pool.ErrExhausted), errors.Is(err, render.ErrRenderFailed):
		c.Header("Retry-After", "5")
		h.RespondWithError(c, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.RespondWithError(c, statusClientClosedRequest, err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, InternalServerError)
	}
}
