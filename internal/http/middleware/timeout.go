package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-media-hub/internal/http/response"
	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
)

// Timeout ограничивает время обработки запроса.
//   - deadline навешивается, только если у запроса его ещё нет;
//   - если обработчик вернулся по истечении deadline, ничего не записав,
//     клиент получает 504 в формате ErrorEnvelope;
//   - d<=0 отключает мидлвар.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
				r = r.WithContext(ctx)
			}

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			if sw.status == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.From(ctx).Warn("request_timeout",
					slog.String("path", r.URL.Path),
					slog.Duration("timeout", d),
				)
				response.WriteError(sw, r, ctx.Err())
			}
		})
	}
}
