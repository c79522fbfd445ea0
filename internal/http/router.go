package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pribylovaa/go-media-hub/internal/config"
	"github.com/pribylovaa/go-media-hub/internal/http/handlers"
	"github.com/pribylovaa/go-media-hub/internal/http/middleware"
	"github.com/pribylovaa/go-media-hub/internal/metrics"
)

// multipartOverhead - запас на текстовые поля и границы multipart сверх размера файлов.
const multipartOverhead = 1 << 20

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.HTTP
	Timeout  time.Duration
	BasePath string // например, "/api/v1"; если пустой - роуты регистрируются на корне.
	// BodyLimit - лимит JSON-тела.
	BodyLimit int64
	// MaxAssetSize - лимит одного файла; multipart-маршрутам разрешено два файла.
	MaxAssetSize int64
	CORSOrigins  []string
	Cookie       config.CookieConfig
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc handlers.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics),
		cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(opts.Timeout), // общий дедлайн запроса
	)

	uploadLimit := int64(0)
	if opts.MaxAssetSize > 0 {
		uploadLimit = 2*opts.MaxAssetSize + multipartOverhead
	}

	h := handlers.New(svc, opts.Cookie, uploadLimit)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc, opts.BodyLimit, uploadLimit)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc, opts.BodyLimit, uploadLimit)
	return root
}

// registerRoutes - единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Authenticator, bodyLimit, uploadLimit int64) {
	guard := middleware.Authenticate(auth)
	jsonBody := middleware.BodyLimit(bodyLimit)
	upload := middleware.BodyLimit(uploadLimit)

	// users: публичные
	r.With(upload).Post("/users/register", h.RegisterUser)
	r.With(jsonBody).Post("/users/login", h.LoginUser)
	r.With(jsonBody).Post("/users/refresh-token", h.RefreshAccessToken)

	// users: защищённые
	r.Group(func(r chi.Router) {
		r.Use(guard)

		r.Post("/users/logout", h.LogoutUser)
		r.Get("/users/current-user", h.CurrentUser)
		r.Get("/users/history", h.WatchHistory)
		r.Get("/users/c/{username}", h.ChannelProfile)
		r.Post("/users/c/{username}/subscription", h.Subscribe)
		r.Delete("/users/c/{username}/subscription", h.Unsubscribe)

		r.With(jsonBody).Post("/users/change-password", h.ChangePassword)
		r.With(jsonBody).Patch("/users/update-account", h.UpdateAccount)
		r.With(upload).Patch("/users/avatar", h.UpdateAvatar)
		r.With(upload).Patch("/users/cover-image", h.UpdateCoverImage)

		r.Post("/videos/{videoId}/watch", h.RecordWatch)
	})

	// videos
	r.Get("/videos/watch", h.VideosHealth)
}
