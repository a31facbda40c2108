package appointment

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gymsched/internal/api"
	"gymsched/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// TransitionStatus godoc
// @Summary      Transition appointment status
// @Description  Moves an appointment along PENDING -> CONFIRMED/CANCELLED -> COMPLETED.
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        appointmentID  path      int                true  "Appointment ID"
// @Param        request        body      TransitionRequest  true  "Target status"
// @Success      200            {object}  Appointment
// @Failure      400            {object}  api.ErrorResponse
// @Failure      403            {object}  api.ErrorResponse
// @Failure      404            {object}  api.ErrorResponse
// @Failure      409            {object}  api.ErrorResponse
// @Failure      503            {object}  api.ErrorResponse
// @Router       /appointments/{appointmentID}/status [post]
func (h *Handler) TransitionStatus(c *gin.Context) {
	trainerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	appointmentID, err := strconv.Atoi(c.Param("appointmentID"))
	if err != nil {
		api.BadRequest(c, "Invalid appointment ID")
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	to := Status(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	updated, err := h.service.Transition(c.Request.Context(), trainerID, appointmentID, to)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
