package calendar

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gymsched/internal/api"
	"gymsched/internal/apperr"
	"gymsched/internal/appointment"
	"gymsched/internal/auth"
	"gymsched/internal/colorizer"
	"gymsched/internal/events"
	"gymsched/internal/logger"
	"gymsched/internal/metrics"
	"gymsched/internal/timeutil"
)

const heartbeatInterval = 25 * time.Second

type Handler struct {
	service Service
	bus     *events.Bus
}

func NewHandler(service Service, bus *events.Bus) *Handler {
	return &Handler{service: service, bus: bus}
}

type ColorResponse struct {
	Label      string                 `json:"label" example:"HIIT"`
	Normalized string                 `json:"normalized" example:"hiit"`
	Color      colorizer.PaletteColor `json:"color"`
}

type PaletteResponse struct {
	Neutral colorizer.PaletteColor   `json:"neutral"`
	Palette []colorizer.PaletteColor `json:"palette"`
}

// GetCalendar godoc
// @Summary      Materialize calendar
// @Description  Builds the day, week or month view of the trainer's sessions with free/busy slots.
// @Tags         calendar
// @Security     BearerAuth
// @Produce      json
// @Param        date    query     string  false  "Reference date (YYYY-MM-DD or RFC3339), defaults to today"
// @Param        view    query     string  false  "day, week or month"  default(week)
// @Param        status  query     string  false  "Comma separated appointment statuses"
// @Param        q       query     string  false  "Case-insensitive match on member name or session type"
// @Success      200     {object}  ViewModel
// @Failure      400     {object}  api.ErrorResponse
// @Failure      503     {object}  api.UnavailableResponse
// @Router       /calendar [get]
func (h *Handler) GetCalendar(c *gin.Context) {
	trainerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	req, err := parseRequest(c)
	if err != nil {
		api.BadRequest(c, err.Error())
		return
	}
	req.TrainerID = trainerID

	vm, err := h.service.Materialize(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstream) {
			api.RespondUnavailable(c, err)
			return
		}
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, vm)
}

// Events godoc
// @Summary      Calendar invalidation stream
// @Description  Server-sent events emitted whenever the trainer's availability or appointments change.
// @Tags         calendar
// @Security     BearerAuth
// @Produce      text/event-stream
// @Success      200  {object}  events.Event
// @Router       /calendar/events [get]
func (h *Handler) Events(c *gin.Context) {
	trainerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	ch := make(chan events.Event, 16)
	unsubscribe := h.bus.Subscribe(func(e events.Event) {
		if e.TrainerID != trainerID {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})
	defer unsubscribe()

	metrics.CalendarSubscribers.Inc()
	defer metrics.CalendarSubscribers.Dec()
	logger.Debug("calendar stream opened", "trainer_id", trainerID, "subscribers", h.bus.Len())

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e := <-ch:
			c.SSEvent(string(e.Kind), e)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now()})
			return true
		}
	})
}

// Colors godoc
// @Summary      Session type colors
// @Description  Returns the color for a label, or the whole palette when no label is given.
// @Tags         calendar
// @Produce      json
// @Param        label  query     string  false  "Session type label"
// @Success      200    {object}  ColorResponse
// @Success      200    {object}  PaletteResponse
// @Router       /colors [get]
func (h *Handler) Colors(c *gin.Context) {
	label, ok := c.GetQuery("label")
	if !ok {
		c.JSON(http.StatusOK, PaletteResponse{Neutral: colorizer.Neutral, Palette: colorizer.Palette()})
		return
	}

	c.JSON(http.StatusOK, ColorResponse{
		Label:      label,
		Normalized: colorizer.Normalize(label),
		Color:      colorizer.ColorFor(label),
	})
}

func parseRequest(c *gin.Context) (Request, error) {
	var req Request

	view := c.DefaultQuery("view", string(timeutil.ViewWeek))
	mode, err := timeutil.ParseViewMode(view)
	if err != nil {
		return req, err
	}
	req.View = mode

	if raw := c.Query("date"); raw != "" {
		date, err := timeutil.ParseDate(raw, time.Local)
		if err != nil {
			return req, err
		}
		req.Date = date
	}

	for _, value := range c.QueryArray("status") {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			st := appointment.Status(part)
			if !st.Valid() {
				return req, apperr.Validation("unknown appointment status %q", part)
			}
			req.Filter.Statuses = append(req.Filter.Statuses, st)
		}
	}
	req.Filter.Query = c.Query("q")

	return req, nil
}
