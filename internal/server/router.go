package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	wardmw "github.com/lewisedginton/ward_desk/internal/middleware"
	"github.com/lewisedginton/ward_desk/pkg/health"
	"github.com/lewisedginton/ward_desk/pkg/httpmiddleware"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/lewisedginton/ward_desk/pkg/metrics"
)

// RouterOptions configures NewRouter. Zero values disable the optional parts.
type RouterOptions struct {
	Logger      logger.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string
	Timeout     time.Duration

	Health        *health.HealthChecker
	LivenessPath  string
	ReadinessPath string
}

// NewRouter mounts the channel endpoints. The websocket route sits outside the
// timeout and compression middleware.
func NewRouter(api *API, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(opts.Metrics.HTTPMiddleware())
	r.Use(wardmw.Recovery(wardmw.DefaultRecoveryConfig(opts.Logger)))

	mw := httpmiddleware.DefaultConfig()
	mw.Logger = opts.Logger
	mw.EnableLogging = opts.Logger != nil
	mw.EnableTimeout = false
	mw.EnableCompression = false
	mw.EnableRecovery = false
	cors := httpmiddleware.DefaultCORSConfig()
	cors.AllowedMethods = append(cors.AllowedMethods, http.MethodDelete)
	if len(opts.CORSOrigins) > 0 {
		cors.AllowedOrigins = opts.CORSOrigins
	}
	mw.CORS = &cors
	httpmiddleware.ApplyToRouter(r, mw)

	if opts.Health != nil {
		if opts.LivenessPath == "" {
			opts.LivenessPath = "/health/live"
		}
		if opts.ReadinessPath == "" {
			opts.ReadinessPath = "/health/ready"
		}
		r.Get(opts.LivenessPath, opts.Health.LivenessHandler())
		r.Get(opts.ReadinessPath, opts.Health.ReadinessHandler())
	}

	r.Get("/ws/chat", api.handleChatSocket)

	r.Group(func(r chi.Router) {
		if opts.Timeout > 0 {
			r.Use(middleware.Timeout(opts.Timeout))
		}
		r.Use(middleware.Compress(5))

		r.Post("/ussd", api.handleUSSD)
		r.Post("/chat", api.handleChat)
		r.Get("/context/{sessionID}", api.handleGetContext)
		r.Delete("/context/{sessionID}", api.handleDeleteContext)
		r.Get("/knowledge/search", api.handleSearch)
		r.Post("/knowledge/entries", api.handleLearn)
	})

	return r
}
