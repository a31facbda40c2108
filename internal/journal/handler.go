package journal

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymsched/internal/api"
	"gymsched/internal/apperr"
	"gymsched/internal/auth"
	"gymsched/internal/events"
)

// Reader is the read side of the journal used by the handler.
type Reader interface {
	Recent(ctx context.Context, trainerID, limit int) ([]events.Event, error)
}

type Handler struct {
	journal Reader
}

func NewHandler(journal Reader) *Handler {
	return &Handler{journal: journal}
}

type ChangesResponse struct {
	Events []events.Event `json:"events"`
}

// Changes godoc
// @Summary      Recent calendar changes
// @Description  Newest-first invalidation events for the trainer, for clients reconnecting to the event stream.
// @Tags         calendar
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Number of events (1-100)"  default(20)
// @Success      200    {object}  ChangesResponse
// @Failure      400    {object}  api.ErrorResponse
// @Failure      503    {object}  api.UnavailableResponse
// @Router       /calendar/changes [get]
func (h *Handler) Changes(c *gin.Context) {
	trainerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	limit := DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.BadRequest(c, "Invalid limit")
			return
		}
		limit = n
	}

	list, err := h.journal.Recent(c.Request.Context(), trainerID, limit)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstream) {
			api.RespondUnavailable(c, err)
			return
		}
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChangesResponse{Events: list})
}
