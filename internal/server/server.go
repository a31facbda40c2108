package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gymsched/internal/appointment"
	"gymsched/internal/auth"
	"gymsched/internal/availability"
	"gymsched/internal/calendar"
	"gymsched/internal/config"
	"gymsched/internal/events"
	"gymsched/internal/journal"
)

// Deps are the wired services the HTTP layer dispatches to.
type Deps struct {
	Availability availability.Service
	Appointments appointment.Service
	Calendar     calendar.Service
	Bus          *events.Bus
	// Journal is nil when the change journal is disabled.
	Journal journal.Reader
	Probes  map[string]Probe
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, deps Deps) *Server {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		corsMiddleware(cfg.CORSOrigins),
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	calendarHandler := calendar.NewHandler(deps.Calendar, deps.Bus)

	router.GET("/health", Health(deps.Probes))
	router.GET("/metrics", Metrics())
	router.GET("/colors", calendarHandler.Colors)
	SetupSwagger(router)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(cfg.JWTSecret), auth.RequireRole(auth.RoleTrainer))
	{
		availability.NewHandler(deps.Availability).Register(protected.Group("/availability"))

		protected.GET("/calendar", calendarHandler.GetCalendar)
		protected.GET("/calendar/events", calendarHandler.Events)
		if deps.Journal != nil {
			protected.GET("/calendar/changes", journal.NewHandler(deps.Journal).Changes)
		}

		protected.POST("/appointments/:appointmentID/status", appointment.NewHandler(deps.Appointments).TransitionStatus)
	}

	// Request contexts derive from baseCtx so long-lived streams end when
	// shutdown begins instead of holding it open.
	baseCtx, stop := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	httpServer.RegisterOnShutdown(stop)

	return &Server{
		router: router,
		config: cfg,
		http:   httpServer,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	return s.http.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
