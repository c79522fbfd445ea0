package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// Authenticate проверяет access-токен и возвращает очищенного пользователя.
// Refresh-токен при этом не используется.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "service.guard.Authenticate"

	if accessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, authError("Unauthorized request"))
	}

	userID, err := s.parseAccessToken(accessToken)
	if err != nil {
		log.From(ctx).Debug("access_token_rejected",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, authError("Invalid access token"))
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, authError("Invalid access token"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.Sanitized(), nil
}
