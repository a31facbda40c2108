package availability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gymsched/internal/api"
	"gymsched/internal/apperr"
	"gymsched/internal/auth"
	"gymsched/internal/timeutil"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/quick-add/weekdays", h.QuickAddWeekdays)
	rg.POST("/quick-add/range", h.QuickAddRange)
	rg.POST("/:weekday/slots", h.AddSlot)
	rg.DELETE("/:weekday/slots/:index", h.RemoveSlot)
	rg.PATCH("/:weekday/slots/:index", h.SetSlotStatus)
	rg.PUT("/:weekday/note", h.SetNote)
	rg.POST("/:weekday/copy", h.CopyDay)
}

// List godoc
// @Summary      List weekly availability
// @Description  Returns the trainer's recurring availability ordered Monday..Sunday.
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   WeekdayAvailability
// @Failure      401  {object}  api.ErrorResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /availability [get]
func (h *Handler) List(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}

	days, err := h.service.List(c.Request.Context(), trainerID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, days)
}

// AddSlot godoc
// @Summary      Add slot
// @Description  Appends a slot to a weekday, creating the weekday entry when absent.
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        weekday  path      string       true  "Weekday name"
// @Param        request  body      SlotRequest  true  "Slot"
// @Success      201      {object}  WeekdayAvailability
// @Failure      400      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /availability/{weekday}/slots [post]
func (h *Handler) AddSlot(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}
	weekday, ok := weekdayParam(c)
	if !ok {
		return
	}

	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	day, err := h.service.AddSlot(c.Request.Context(), trainerID, weekday, req.Slot())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, day)
}

// RemoveSlot godoc
// @Summary      Remove slot
// @Description  Removes the slot at the given position. Removing the last slot deletes the weekday entry.
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Param        weekday  path      string  true  "Weekday name"
// @Param        index    path      int     true  "Slot position"
// @Success      200      {object}  WeekdayAvailability
// @Success      200      {object}  DeletedDayResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /availability/{weekday}/slots/{index} [delete]
func (h *Handler) RemoveSlot(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}
	weekday, ok := weekdayParam(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}

	day, err := h.service.RemoveSlot(c.Request.Context(), trainerID, weekday, index)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if day == nil {
		c.JSON(http.StatusOK, DeletedDayResponse{Weekday: weekday, Deleted: true})
		return
	}
	c.JSON(http.StatusOK, day)
}

// SetSlotStatus godoc
// @Summary      Change slot status
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        weekday  path      string            true  "Weekday name"
// @Param        index    path      int               true  "Slot position"
// @Param        request  body      SetStatusRequest  true  "New status"
// @Success      200      {object}  WeekdayAvailability
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /availability/{weekday}/slots/{index} [patch]
func (h *Handler) SetSlotStatus(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}
	weekday, ok := weekdayParam(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	day, err := h.service.SetSlotStatus(c.Request.Context(), trainerID, weekday, index, req.Status)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, day)
}

// SetNote godoc
// @Summary      Set weekday note
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        weekday  path      string       true  "Weekday name"
// @Param        request  body      NoteRequest  true  "Note"
// @Success      200      {object}  WeekdayAvailability
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /availability/{weekday}/note [put]
func (h *Handler) SetNote(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}
	weekday, ok := weekdayParam(c)
	if !ok {
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	day, err := h.service.SetNote(c.Request.Context(), trainerID, weekday, req.Note)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, day)
}

// QuickAddWeekdays godoc
// @Summary      Quick-add slot on weekdays
// @Description  Adds the same slot to every listed weekday. Each weekday succeeds or fails independently.
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      QuickAddWeekdaysRequest  true  "Weekdays and slot"
// @Success      200      {object}  BulkResult
// @Success      207      {object}  BulkResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  BulkResult
// @Router       /availability/quick-add/weekdays [post]
func (h *Handler) QuickAddWeekdays(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}

	var req QuickAddWeekdaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	weekdays, err := parseWeekdays(req.Weekdays)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	result, err := h.service.QuickAddByWeekdays(c.Request.Context(), trainerID, weekdays, req.Slot())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	respondBulk(c, result)
}

// QuickAddRange godoc
// @Summary      Quick-add slot over a date range
// @Description  Adds the slot to every weekday touched by the inclusive date range.
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      QuickAddRangeRequest  true  "Date range and slot"
// @Success      200      {object}  BulkResult
// @Success      207      {object}  BulkResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  BulkResult
// @Router       /availability/quick-add/range [post]
func (h *Handler) QuickAddRange(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}

	var req QuickAddRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	start, err := timeutil.ParseDate(req.StartDate, time.Local)
	if err != nil {
		api.BadRequest(c, "Invalid start_date")
		return
	}
	end, err := timeutil.ParseDate(req.EndDate, time.Local)
	if err != nil {
		api.BadRequest(c, "Invalid end_date")
		return
	}

	result, err := h.service.QuickAddByDateRange(c.Request.Context(), trainerID, start, end, req.Slot())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	respondBulk(c, result)
}

// CopyDay godoc
// @Summary      Copy a weekday's slots
// @Description  Replaces each target weekday's slots with an independent copy of the source weekday.
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        weekday  path      string          true  "Source weekday"
// @Param        request  body      CopyDayRequest  true  "Target weekdays"
// @Success      200      {object}  BulkResult
// @Success      207      {object}  BulkResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      502      {object}  BulkResult
// @Router       /availability/{weekday}/copy [post]
func (h *Handler) CopyDay(c *gin.Context) {
	trainerID, ok := trainer(c)
	if !ok {
		return
	}
	from, ok := weekdayParam(c)
	if !ok {
		return
	}

	var req CopyDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	targets, err := parseWeekdays(req.Targets)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	result, err := h.service.CopyDay(c.Request.Context(), trainerID, from, targets)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	respondBulk(c, result)
}

func respondBulk(c *gin.Context, result *BulkResult) {
	switch {
	case result.AllFailed():
		c.JSON(http.StatusBadGateway, result)
	case result.Partial():
		c.JSON(http.StatusMultiStatus, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

func trainer(c *gin.Context) (int, bool) {
	trainerID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return 0, false
	}
	return trainerID, true
}

func weekdayParam(c *gin.Context) (timeutil.Weekday, bool) {
	weekday, err := timeutil.ParseWeekday(c.Param("weekday"))
	if err != nil {
		api.BadRequest(c, "Invalid weekday")
		return "", false
	}
	return weekday, true
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		api.BadRequest(c, "Invalid slot index")
		return 0, false
	}
	return index, true
}

func parseWeekdays(names []string) ([]timeutil.Weekday, error) {
	out := make([]timeutil.Weekday, 0, len(names))
	for _, name := range names {
		w, err := timeutil.ParseWeekday(name)
		if err != nil {
			return nil, apperr.Validation("unknown weekday %q", name)
		}
		out = append(out, w)
	}
	return out, nil
}
