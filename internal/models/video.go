package models

import (
	"time"

	"github.com/google/uuid"
)

// Video - метаданные видео. Duration в секундах.
type Video struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	VideoFile   string
	Thumbnail   string
	Title       string
	Description string
	Duration    float64
	Views       int64
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Owner - публичная часть профиля владельца видео.
type Owner struct {
	Username string
	FullName string
	Avatar   string
}

// WatchedVideo - элемент истории просмотров с присоединённым владельцем.
type WatchedVideo struct {
	Video
	Owner Owner
}
