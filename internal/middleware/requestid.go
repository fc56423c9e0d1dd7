// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package middleware holds the HTTP middleware shared by all routes:
// request-ID propagation, request logging and Prometheus metrics.
package middleware

import (
	"net/http"

	"github.com/stayapp/stay-middleware/internal/logging"
)

// RequestIDHeader is the inbound/outbound request correlation header.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the context and response. An ID
// supplied by the caller is reused so correlation spans client retries.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = logging.GenerateRequestID()
		}
		ctx := logging.ContextWithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
