// storage описывает контракты хранилищ сервиса. Реализации:
// internal/storage/mongo и internal/storage/postgres (учётные записи,
// подписки, видео) и internal/storage/minio (бинарные ассеты).
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/models"
)

var (
	// ErrNotFound - запись не найдена (пользователь/видео) или условие
	// условного обновления не выполнено.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists - нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument - нарушены ограничения ассета (тип/размер).
	ErrInvalidArgument = errors.New("invalid argument")
)

// UserStorage выполняет операции над учётными записями.
type UserStorage interface {
	// CreateUser сохраняет нового пользователя. ErrAlreadyExists при конфликте username/email.
	CreateUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsername находит пользователя по username (в нижнем регистре).
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByLogin находит пользователя, у которого совпал username ИЛИ email.
	// Пустые значения в фильтр не попадают.
	UserByLogin(ctx context.Context, username, email string) (*models.User, error)
	// SetRefreshToken безусловно перезаписывает хэш refresh-токена.
	// Пустой hash удаляет значение.
	SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error
	// SwapRefreshToken заменяет хэш только если текущее значение равно oldHash.
	// ErrNotFound, если пользователя нет или значение уже другое.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string) error
	// UpdatePassword пишет только хэш пароля.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	// UpdateAccount меняет fullname и email и возвращает обновлённую запись.
	UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (*models.User, error)
	// UpdateImage меняет ссылку на аватар или обложку и возвращает обновлённую запись.
	UpdateImage(ctx context.Context, id uuid.UUID, kind models.ImageKind, url string) (*models.User, error)
	// AppendWatchHistory добавляет видео в конец истории просмотров.
	AppendWatchHistory(ctx context.Context, id, videoID uuid.UUID) error
}

// RelationStorage - подписки, видео и агрегирующие запросы поверх них.
type RelationStorage interface {
	// Subscribe создаёт ребро subscriber -> channel; повтор не создаёт дубликат.
	Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
	// Unsubscribe удаляет ребро; отсутствие ребра не ошибка.
	Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
	// VideoByID находит видео по ID.
	VideoByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	// ChannelProfile строит профиль канала с количеством подписчиков/подписок
	// и признаком подписки viewerID.
	ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error)
	// WatchHistory возвращает историю просмотров с владельцами видео
	// в порядке хранения. ErrNotFound, если пользователя нет.
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RelationStorage
	// Ping проверяет доступность БД (readiness).
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Asset - загружаемый бинарный объект.
type Asset struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// AssetStore - внешнее хранилище изображений. Возвращает стабильную ссылку (URL),
// байты ассетов в ядро не попадают.
type AssetStore interface {
	// Upload сохраняет объект для пользователя и возвращает его публичный URL.
	Upload(ctx context.Context, userID uuid.UUID, kind models.ImageKind, asset Asset) (string, error)
	// Delete удаляет объект по URL, выданному Upload. Чужие URL игнорируются.
	Delete(ctx context.Context, url string) error
}
