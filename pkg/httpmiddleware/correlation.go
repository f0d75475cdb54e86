package httpmiddleware

import (
	"net/http"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// CorrelationID keeps a client supplied X-Correlation-ID when it is a valid
// UUID and mints one otherwise. The id is stored on the request context and
// echoed on the response.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, id := logger.EnsureHTTPCorrelationID(r)
			w.Header().Set(logger.CorrelationIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}
