package mongo

import (
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/models"
)

// Документы хранятся с _id = строковым UUID, чтобы $lookup между
// коллекциями сравнивал значения одного типа.

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	FullName     string    `bson:"fullname"`
	Password     string    `bson:"password"`
	Avatar       string    `bson:"avatar"`
	CoverImage   string    `bson:"coverImage"`
	RefreshToken string    `bson:"refreshToken,omitempty"`
	WatchHistory []string  `bson:"watchHistory"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type videoDoc struct {
	ID          string    `bson:"_id"`
	Owner       string    `bson:"owner"`
	VideoFile   string    `bson:"videoFile"`
	Thumbnail   string    `bson:"thumbnail"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Duration    float64   `bson:"duration"`
	Views       int64     `bson:"views"`
	IsPublished bool      `bson:"isPublished"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type ownerDoc struct {
	Username string `bson:"username"`
	FullName string `bson:"fullname"`
	Avatar   string `bson:"avatar"`
}

// watchedDoc - видео после $lookup владельца; owner свёрнут в один объект.
type watchedDoc struct {
	videoDoc `bson:",inline"`
	Owner    *ownerDoc `bson:"owner"`
}

type historyDoc struct {
	History []watchedDoc `bson:"history"`
}

type channelDoc struct {
	ID                        string    `bson:"_id"`
	Username                  string    `bson:"username"`
	FullName                  string    `bson:"fullname"`
	Avatar                    string    `bson:"avatar"`
	CoverImage                string    `bson:"coverImage"`
	CreatedAt                 time.Time `bson:"createdAt"`
	SubscribersCount          int64     `bson:"subscribersCount"`
	ChannelsSubscribedToCount int64     `bson:"channelsSubscribedToCount"`
	IsSubscribed              bool      `bson:"isSubscribed"`
}

// toMS приводит время к точности MongoDB DateTime (миллисекунды).
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func userToDoc(u *models.User) userDoc {
	history := make([]string, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		history = append(history, id.String())
	}

	return userDoc{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Password:     u.PasswordHash,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		RefreshToken: u.RefreshTokenHash,
		WatchHistory: history,
		CreatedAt:    toMS(u.CreatedAt),
		UpdatedAt:    toMS(u.UpdatedAt),
	}
}

func (d userDoc) toModel() *models.User {
	history := make([]uuid.UUID, 0, len(d.WatchHistory))
	for _, s := range d.WatchHistory {
		if id, err := uuid.Parse(s); err == nil {
			history = append(history, id)
		}
	}

	id, _ := uuid.Parse(d.ID)

	return &models.User{
		ID:               id,
		Username:         d.Username,
		Email:            d.Email,
		FullName:         d.FullName,
		PasswordHash:     d.Password,
		Avatar:           d.Avatar,
		CoverImage:       d.CoverImage,
		RefreshTokenHash: d.RefreshToken,
		WatchHistory:     history,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func (d videoDoc) toModel() models.Video {
	id, _ := uuid.Parse(d.ID)
	owner, _ := uuid.Parse(d.Owner)

	return models.Video{
		ID:          id,
		OwnerID:     owner,
		VideoFile:   d.VideoFile,
		Thumbnail:   d.Thumbnail,
		Title:       d.Title,
		Description: d.Description,
		Duration:    d.Duration,
		Views:       d.Views,
		IsPublished: d.IsPublished,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (d watchedDoc) toModel() models.WatchedVideo {
	out := models.WatchedVideo{Video: d.videoDoc.toModel()}
	if d.Owner != nil {
		out.Owner = models.Owner{
			Username: d.Owner.Username,
			FullName: d.Owner.FullName,
			Avatar:   d.Owner.Avatar,
		}
	}

	return out
}

func (d channelDoc) toModel() *models.ChannelProfile {
	id, _ := uuid.Parse(d.ID)

	return &models.ChannelProfile{
		ID:                        id,
		Username:                  d.Username,
		FullName:                  d.FullName,
		Avatar:                    d.Avatar,
		CoverImage:                d.CoverImage,
		CreatedAt:                 d.CreatedAt.UTC(),
		SubscribersCount:          d.SubscribersCount,
		ChannelsSubscribedToCount: d.ChannelsSubscribedToCount,
		IsSubscribed:              d.IsSubscribed,
	}
}
