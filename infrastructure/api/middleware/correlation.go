package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/helixml/embedsync/internal/log"
)

// CorrelationHeader is echoed on every response.
const CorrelationHeader = "X-Correlation-ID"

// Correlation stores a correlation id and the chi request id in the request
// context so every log line of the request carries them. The id comes from
// the X-Correlation-ID header when present.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = log.WithRequestID(ctx, reqID)
		}

		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = log.NewCorrelationID()
		}
		ctx = log.WithCorrelationID(ctx, id)

		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
