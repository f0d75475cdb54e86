// Package middleware provides HTTP middleware for the channel endpoints.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// USSDFallback is written when a dial-menu request panics. Gateways show the
// body to the subscriber, so it must carry the END prefix.
const USSDFallback = "END Service temporarily unavailable"

// RecoveryConfig holds configuration for the recovery middleware
type RecoveryConfig struct {
	Logger           logger.Logger
	EnableStackTrace bool
	// PlainTextPaths answer with USSDFallback instead of a JSON error.
	PlainTextPaths []string
}

// DefaultRecoveryConfig returns the configuration used by the API router.
func DefaultRecoveryConfig(log logger.Logger) RecoveryConfig {
	return RecoveryConfig{
		Logger:           log,
		EnableStackTrace: true,
		PlainTextPaths:   []string{"/ussd"},
	}
}

// Recovery returns a middleware that recovers from panics, logs them and
// answers in the format the calling channel expects.
func Recovery(config RecoveryConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
						panic(err)
					}
					handlePanic(w, r, err, config)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(w http.ResponseWriter, r *http.Request, err any, config RecoveryConfig) {
	var stackTrace string
	if config.EnableStackTrace {
		stackTrace = string(debug.Stack())
	}
	logPanic(r, err, stackTrace, config.Logger)

	w.Header().Set("Connection", "close")
	if plainText(r.URL.Path, config.PlainTextPaths) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(USSDFallback))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal server error"}`))
}

func plainText(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func logPanic(r *http.Request, panicErr any, stackTrace string, log logger.Logger) {
	if log == nil {
		return
	}

	fields := []logger.LogField{
		logger.StringField("panic_error", fmt.Sprintf("%v", panicErr)),
		logger.HTTPMethodField(r.Method),
		logger.HTTPPathField(r.URL.Path),
		logger.ClientIPField(clientIP(r)),
		logger.StringField("request_id", r.Header.Get("X-Request-ID")),
	}
	if stackTrace != "" {
		fields = append(fields, logger.StringField("stack_trace", stackTrace))
	}
	log.Error("HTTP request panic recovered", fields...)
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
