package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// ChannelProfile строит публичный профиль канала глазами viewerID.
func (s *Service) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const op = "service.channels.ChannelProfile"

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, validationError("username is missing"))
	}

	profile, err := s.storage.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundError("channel does not exist"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return profile, nil
}

// WatchHistory возвращает историю просмотров в порядке хранения.
// Пустая история - пустой срез, не nil.
func (s *Service) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	const op = "service.channels.WatchHistory"

	history, err := s.storage.WatchHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if history == nil {
		history = []models.WatchedVideo{}
	}

	return history, nil
}

// Subscribe подписывает пользователя на канал. Повторная подписка - no-op.
func (s *Service) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	const op = "service.channels.Subscribe"

	channel, err := s.resolveChannel(ctx, channelUsername)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if channel.ID == subscriberID {
		return fmt.Errorf("%s: %w", op, validationError("cannot subscribe to your own channel"))
	}

	if err := s.storage.Subscribe(ctx, subscriberID, channel.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundError("channel does not exist"))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Unsubscribe снимает подписку. Отсутствие подписки не ошибка.
func (s *Service) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	const op = "service.channels.Unsubscribe"

	channel, err := s.resolveChannel(ctx, channelUsername)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.Unsubscribe(ctx, subscriberID, channel.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RecordWatch добавляет видео в конец истории просмотров пользователя.
func (s *Service) RecordWatch(ctx context.Context, userID, videoID uuid.UUID) error {
	const op = "service.channels.RecordWatch"

	if _, err := s.storage.VideoByID(ctx, videoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundError("video does not exist"))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.AppendWatchHistory(ctx, userID, videoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) resolveChannel(ctx context.Context, username string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, validationError("username is missing")
	}

	channel, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundError("channel does not exist")
		}

		return nil, err
	}

	return channel, nil
}
