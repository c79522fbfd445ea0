package middleware

import (
	"context"
	"log/slog"

	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
)

type holderKey struct{}

type loggerHolder struct {
	l *slog.Logger
}

func withHolder(ctx context.Context, h *loggerHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// enrichLogger добавляет атрибуты к логгеру запроса и к итоговой записи Logging.
func enrichLogger(ctx context.Context, args ...any) context.Context {
	ctx = log.With(ctx, args...)
	if h, ok := ctx.Value(holderKey{}).(*loggerHolder); ok {
		h.l = log.From(ctx)
	}
	return ctx
}
