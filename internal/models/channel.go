package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelProfile - публичный профиль канала с производными полями.
// IsSubscribed вычисляется относительно смотрящего пользователя.
type ChannelProfile struct {
	ID                        uuid.UUID
	Username                  string
	FullName                  string
	Avatar                    string
	CoverImage                string
	CreatedAt                 time.Time
	SubscribersCount          int64
	ChannelsSubscribedToCount int64
	IsSubscribed              bool
}

// Subscription - ребро подписки subscriber -> channel.
type Subscription struct {
	SubscriberID uuid.UUID
	ChannelID    uuid.UUID
	CreatedAt    time.Time
}
