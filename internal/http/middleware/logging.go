package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
)

// Logging кладёт request-scoped логгер в контекст и пишет одну запись
// "http" на запрос.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := RequestIDFrom(r.Context()); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			// holder позволяет внутренним мидлварам (Authenticate) дополнить
			// логгер так, чтобы итоговая запись это увидела.
			holder := &loggerHolder{l: reqLogger}
			ctx := log.Into(r.Context(), reqLogger)
			ctx = withHolder(ctx, holder)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Duration("dur", dur),
				slog.Int("bytes", sw.count),
			}

			holder.l.LogAttrs(r.Context(), slog.LevelInfo, "http", attrs...)
		})
	}
}
