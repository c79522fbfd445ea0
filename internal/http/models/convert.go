package models

import (
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/service"
)

func (m LoginRequest) ToInput() service.LoginInput {
	return service.LoginInput{
		Username: m.Username,
		Email:    m.Email,
		Password: m.Password,
	}
}

func UserFromModel(u *models.User) User {
	if u == nil {
		return User{}
	}

	history := make([]string, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		history = append(history, id.String())
	}

	return User{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func LoginFromModel(s *models.Session) LoginResponse {
	if s == nil {
		return LoginResponse{}
	}

	return LoginResponse{
		User:         UserFromModel(s.User),
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
	}
}

func TokensFromModel(t models.TokenPair) TokensResponse {
	return TokensResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
}

func ChannelFromModel(p *models.ChannelProfile) ChannelProfile {
	if p == nil {
		return ChannelProfile{}
	}

	return ChannelProfile{
		ID:                        p.ID.String(),
		Username:                  p.Username,
		FullName:                  p.FullName,
		Avatar:                    p.Avatar,
		CoverImage:                p.CoverImage,
		SubscribersCount:          p.SubscribersCount,
		ChannelsSubscribedToCount: p.ChannelsSubscribedToCount,
		IsSubscribed:              p.IsSubscribed,
	}
}

// HistoryFromModel всегда возвращает не-nil срез, чтобы в JSON был [], а не null.
func HistoryFromModel(items []models.WatchedVideo) []WatchedVideo {
	out := make([]WatchedVideo, 0, len(items))
	for _, v := range items {
		out = append(out, WatchedVideo{
			ID:          v.ID.String(),
			VideoFile:   v.VideoFile,
			Thumbnail:   v.Thumbnail,
			Title:       v.Title,
			Description: v.Description,
			Duration:    v.Duration,
			Views:       v.Views,
			IsPublished: v.IsPublished,
			Owner: Owner{
				Username: v.Owner.Username,
				FullName: v.Owner.FullName,
				Avatar:   v.Owner.Avatar,
			},
			CreatedAt: v.CreatedAt,
			UpdatedAt: v.UpdatedAt,
		})
	}

	return out
}
