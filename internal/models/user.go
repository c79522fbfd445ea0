// models содержит доменные сущности сервиса.
// Эти типы используются слоями бизнес-логики и хранилища; транспортные
// представления живут в internal/http/models.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User - учётная запись пользователя (она же канал).
//   - Username хранится в нижнем регистре и уникален;
//   - Email уникален;
//   - PasswordHash - bcrypt-хэш, открытый пароль не хранится;
//   - RefreshTokenHash - хэш единственного действующего refresh-токена,
//     пустая строка означает отсутствие сессии;
//   - WatchHistory - id видео в порядке добавления.
type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	FullName         string
	PasswordHash     string
	Avatar           string
	CoverImage       string
	RefreshTokenHash string
	WatchHistory     []uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Sanitized возвращает копию без пароля и refresh-токена.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}

	out := *u
	out.PasswordHash = ""
	out.RefreshTokenHash = ""
	if u.WatchHistory != nil {
		out.WatchHistory = append([]uuid.UUID(nil), u.WatchHistory...)
	}

	return &out
}

// ImageKind - тип изображения профиля.
type ImageKind int8

const (
	ImageAvatar ImageKind = iota
	ImageCover
)

func (k ImageKind) String() string {
	switch k {
	case ImageCover:
		return "cover-image"
	default:
		return "avatar"
	}
}
