package models

import "time"

// TokenPair - пара токенов, выдаваемая при логине и refresh.
// Оба токена - JWT, подписанные разными секретами.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session - результат логина: очищенный пользователь и пара токенов.
type Session struct {
	User   *User
	Tokens TokenPair
}
