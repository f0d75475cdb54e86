// Package httpmiddleware assembles the chi middleware stack used by the
// ward-desk HTTP server.
package httpmiddleware

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/unrolled/secure"
)

// Config selects and parameterises middleware. Start from DefaultConfig.
type Config struct {
	Logger      logger.Logger
	StripPrefix string
	CORS        *CORSConfig
	Security    *secure.Options
	Timeout     time.Duration

	EnableCorrelationID bool
	EnableLogging       bool
	EnableRecovery      bool
	EnableCORS          bool
	EnableSecurity      bool
	EnableCompression   bool
	EnableHeartbeat     bool
	EnableRealIP        bool
	EnableTimeout       bool
}

// DefaultConfig enables everything except logging, which needs a Logger.
func DefaultConfig() Config {
	cors := DefaultCORSConfig()
	return Config{
		CORS:    &cors,
		Timeout: 60 * time.Second,

		EnableCorrelationID: true,
		EnableRecovery:      true,
		EnableCORS:          true,
		EnableSecurity:      true,
		EnableCompression:   true,
		EnableHeartbeat:     true,
		EnableRealIP:        true,
		EnableTimeout:       true,
	}
}

// ApplyToRouter installs the configured middleware, outermost first:
// correlation id, security headers, real IP, logging, recovery, prefix
// stripping, CORS, timeout, compression, then the /ping heartbeat.
//
// Timeout and compression are unsuitable for websocket upgrades; mount
// long-lived routes on a router without them.
func ApplyToRouter(router chi.Router, cfg Config) {
	if cfg.EnableCorrelationID {
		router.Use(CorrelationID())
	}
	if cfg.EnableSecurity {
		router.Use(Security(cfg.Security))
	}
	if cfg.EnableRealIP {
		router.Use(middleware.RealIP)
	}
	if cfg.EnableLogging && cfg.Logger != nil {
		router.Use(cfg.Logger.HTTPMiddleware)
	}
	if cfg.EnableRecovery {
		router.Use(middleware.Recoverer)
	}
	if cfg.StripPrefix != "" {
		router.Use(StripPrefix(cfg.StripPrefix))
	}
	if cfg.EnableCORS && cfg.CORS != nil {
		router.Use(CORS(*cfg.CORS))
	}
	if cfg.EnableTimeout && cfg.Timeout > 0 {
		router.Use(middleware.Timeout(cfg.Timeout))
	}
	if cfg.EnableCompression {
		router.Use(middleware.Compress(5))
	}
	if cfg.EnableHeartbeat {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// WithLogger applies DefaultConfig with request logging through log.
func WithLogger(router chi.Router, log logger.Logger) {
	cfg := DefaultConfig()
	cfg.Logger = log
	cfg.EnableLogging = true
	ApplyToRouter(router, cfg)
}
