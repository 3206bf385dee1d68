package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"

	"github.com/vprep/preparator-backend-go/internal/handler/http/middleware"
	"github.com/vprep/preparator-backend-go/internal/handler/http/response"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
)

type Handlers struct {
	Timesheet   TimesheetHandler
	Preparation PreparationHandler
	Schedule    ScheduleHandler
	Monitor     MonitorHandler
}

// RouterOptions carries the router's environment-dependent settings.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(JWTService jwt.Service, h Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/timesheets", func(r chi.Router) {
				r.Get("/today", h.Timesheet.GetToday)
				r.Post("/clock-in", h.Timesheet.ClockIn)
				r.Post("/break-start", h.Timesheet.StartBreak)
				r.Post("/break-end", h.Timesheet.EndBreak)
				r.Post("/clock-out", h.Timesheet.ClockOut)
			})

			r.Route("/preparations", func(r chi.Router) {
				r.Post("/", h.Preparation.Start)
				r.Get("/current", h.Preparation.GetCurrent)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Preparation.Get)
					r.Post("/steps/{type}", h.Preparation.CompleteStep)
					r.Post("/complete", h.Preparation.Complete)
					r.Post("/cancel", h.Preparation.Cancel)
				})
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly)

				r.Post("/schedules", h.Schedule.Create)

				r.Route("/monitor", func(r chi.Router) {
					r.Get("/jobs", h.Monitor.ListJobs)
					r.Post("/jobs/{name}/run", h.Monitor.RunJob)
					r.Post("/jobs/{name}/start", h.Monitor.StartJob)
					r.Post("/jobs/{name}/stop", h.Monitor.StopJob)
					r.Get("/deliveries/{recordType}/{recordID}", h.Monitor.ListDeliveries)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	return r
}
