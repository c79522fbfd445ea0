package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/config"
	"github.com/pribylovaa/go-media-hub/internal/http/middleware"
	"github.com/pribylovaa/go-media-hub/internal/http/response"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/service"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// Service - операции бизнес-слоя, которые вызывают обработчики.
// Реализуется *service.Service.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, in service.LoginInput) (*models.Session, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateAccount(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, asset *storage.Asset) (*models.User, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, asset *storage.Asset) (*models.User, error)
	ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	RecordWatch(ctx context.Context, userID, videoID uuid.UUID) error
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

var _ Service = (*service.Service)(nil)

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc    Service
	cookie config.CookieConfig
	// maxMemory - сколько байт multipart-формы держать в памяти, остальное уходит во временные файлы.
	maxMemory int64
}

func New(svc Service, cookie config.CookieConfig, maxMemory int64) *Handlers {
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}

	return &Handlers{svc: svc, cookie: cookie, maxMemory: maxMemory}
}

// decodeStrict - строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

func invalidBody() error {
	return response.BadRequest("Invalid request body")
}

// caller достаёт пользователя, положенного middleware.Authenticate.
// Без него защищённый маршрут не должен был вызваться.
func caller(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, &service.Error{Kind: service.ErrAuth, Message: "Unauthorized request"})
		return nil, false
	}

	return user, true
}

// emptyObject сериализуется в {}.
type emptyObject struct{}
