package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-media-hub/internal/metrics"
)

// Metrics считает запросы по шаблону маршрута chi. Запросы мимо роутов
// попадают под route="unmatched".
func Metrics(m *metrics.HTTP) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}

			m.Observe(r.Method, route, sw.Status(), time.Since(start))
		})
	}
}
