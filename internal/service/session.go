package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/cache"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
	"github.com/pribylovaa/go-media-hub/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput - данные регистрации. Avatar обязателен, CoverImage - нет.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *storage.Asset
	CoverImage *storage.Asset
}

// LoginInput - учётные данные для входа: username или email плюс пароль.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Register создаёт учётную запись.
// Порядок: проверка полей, предварительная проверка занятости
// username/email, проверка аватара, загрузка изображений, вставка.
// Уникальные индексы хранилища ловят гонку между проверкой и вставкой.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "service.session.Register"

	lg := log.From(ctx)

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullName := strings.TrimSpace(in.FullName)

	if username == "" || email == "" || fullName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%s: %w", op, validationError("All fields are required"))
	}

	if err := validateEmail(email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.UserByLogin(ctx, username, email); err == nil {
		return nil, fmt.Errorf("%s: %w", op, conflictError("User with email or username already exists"))
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Avatar == nil {
		return nil, fmt.Errorf("%s: %w", op, validationError("Avatar must be present!"))
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.New()

	avatarURL, err := s.upload(ctx, id, models.ImageAvatar, *in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var coverURL string
	if in.CoverImage != nil {
		coverURL, err = s.upload(ctx, id, models.ImageCover, *in.CoverImage)
		if err != nil {
			s.dropAsset(ctx, avatarURL)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		WatchHistory: []uuid.UUID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		s.dropAsset(ctx, avatarURL)
		s.dropAsset(ctx, coverURL)

		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, conflictError("User with email or username already exists"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", id.String()),
	)

	return user.Sanitized(), nil
}

// Login проверяет учётные данные и открывает новую сессию.
// Новый refresh-токен перезаписывает сохранённый, прежний становится недействительным.
func (s *Service) Login(ctx context.Context, in LoginInput) (*models.Session, error) {
	const op = "service.session.Login"

	lg := log.From(ctx)

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, validationError("username or email is required"))
	}

	if in.Password == "" {
		return nil, fmt.Errorf("%s: %w", op, validationError("password is required"))
	}

	user, err := s.storage.UserByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, in.Password) {
		lg.Warn("login_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, authError("Invalid user credentials"))
	}

	tokens, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newHash := hashToken(tokens.RefreshToken)
	if err := s.storage.SetRefreshToken(ctx, user.ID, newHash); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheRevoke(ctx, user.RefreshTokenHash)
	s.cacheRemember(ctx, newHash, user.ID, tokens.RefreshExpiresAt)

	return &models.Session{User: user.Sanitized(), Tokens: *tokens}, nil
}

// Logout безусловно удаляет сохранённый refresh-токен. Повторный вызов не ошибка.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "service.session.Logout"

	var oldHash string
	if s.rcache != nil {
		if user, err := s.storage.UserByID(ctx, userID); err == nil {
			oldHash = user.RefreshTokenHash
		}
	}

	if err := s.storage.SetRefreshToken(ctx, userID, ""); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.cacheRevoke(ctx, oldHash)

	return nil
}

// Refresh ротирует пару токенов.
// Предъявленный токен должен совпадать с сохранённым; замена выполняется
// условным обновлением, поэтому из двух параллельных запросов с одним и тем
// же токеном успешен только один.
func (s *Service) Refresh(ctx context.Context, presented string) (*models.Session, error) {
	const op = "service.session.Refresh"

	lg := log.From(ctx)

	if strings.TrimSpace(presented) == "" {
		return nil, fmt.Errorf("%s: %w", op, authError("Unauthorized request"))
	}

	userID, err := s.parseRefreshToken(presented)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, authError("Invalid refresh token"))
	}

	hash := hashToken(presented)

	if s.isRevokedInCache(ctx, hash) {
		lg.Warn("refresh_reuse_detected",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("source", "cache"),
		)
		return nil, fmt.Errorf("%s: %w", op, authError("Refresh token is expired or used"))
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, authError("Invalid refresh token"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshTokenHash == "" || user.RefreshTokenHash != hash {
		lg.Warn("refresh_reuse_detected",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("source", "storage"),
		)
		return nil, fmt.Errorf("%s: %w", op, authError("Refresh token is expired or used"))
	}

	tokens, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newHash := hashToken(tokens.RefreshToken)
	if err := s.storage.SwapRefreshToken(ctx, user.ID, hash, newHash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_swap_lost",
				slog.String("op", op),
				slog.String("user_id", userID.String()),
			)
			return nil, fmt.Errorf("%s: %w", op, authError("Refresh token is expired or used"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheRevoke(ctx, hash)
	s.cacheRemember(ctx, newHash, user.ID, tokens.RefreshExpiresAt)

	user.RefreshTokenHash = newHash

	return &models.Session{User: user.Sanitized(), Tokens: *tokens}, nil
}

// ChangePassword меняет пароль после проверки старого. Пишется только хэш пароля.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	const op = "service.session.ChangePassword"

	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%s: %w", op, validationError("old and new password are required"))
	}

	if oldPassword == newPassword {
		return fmt.Errorf("%s: %w", op, validationError("new password must differ from the old one"))
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, oldPassword) {
		return fmt.Errorf("%s: %w", op, authError("Invalid old password"))
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CurrentUser возвращает очищенную запись пользователя.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.session.CurrentUser"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.Sanitized(), nil
}

// UpdateAccount меняет полное имя и email.
func (s *Service) UpdateAccount(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error) {
	const op = "service.session.UpdateAccount"

	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))

	if fullName == "" || email == "" {
		return nil, fmt.Errorf("%s: %w", op, validationError("All fields are required"))
	}

	if err := validateEmail(email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UpdateAccount(ctx, userID, fullName, email)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, conflictError("Email is already in use"))
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.Sanitized(), nil
}

// UpdateAvatar заменяет аватар.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, asset *storage.Asset) (*models.User, error) {
	return s.updateImage(ctx, userID, models.ImageAvatar, asset)
}

// UpdateCoverImage заменяет обложку канала.
func (s *Service) UpdateCoverImage(ctx context.Context, userID uuid.UUID, asset *storage.Asset) (*models.User, error) {
	return s.updateImage(ctx, userID, models.ImageCover, asset)
}

// updateImage загружает новый файл, сохраняет ссылку и удаляет прежний объект.
// Ошибка удаления прежнего объекта только логируется.
func (s *Service) updateImage(ctx context.Context, userID uuid.UUID, kind models.ImageKind, asset *storage.Asset) (*models.User, error) {
	const op = "service.session.updateImage"

	if asset == nil {
		return nil, fmt.Errorf("%s: %w", op, validationError(kind.String()+" file is missing"))
	}

	current, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.upload(ctx, userID, kind, *asset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UpdateImage(ctx, userID, kind, url)
	if err != nil {
		s.dropAsset(ctx, url)

		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundError("User does not exist"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	previous := current.Avatar
	if kind == models.ImageCover {
		previous = current.CoverImage
	}
	s.dropAsset(ctx, previous)

	return user.Sanitized(), nil
}

// upload отправляет ассет в хранилище; нарушение ограничений -> ValidationError.
func (s *Service) upload(ctx context.Context, userID uuid.UUID, kind models.ImageKind, asset storage.Asset) (string, error) {
	url, err := s.assets.Upload(ctx, userID, kind, asset)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return "", validationError("Invalid "+kind.String()+" file", "allowed image types and size are limited")
		}

		return "", err
	}

	return url, nil
}

func (s *Service) dropAsset(ctx context.Context, url string) {
	if url == "" {
		return
	}

	if err := s.assets.Delete(ctx, url); err != nil {
		log.From(ctx).Warn("asset_delete_failed",
			slog.String("url", url),
			slog.String("err", err.Error()),
		)
	}
}

func (s *Service) cacheRemember(ctx context.Context, hash string, userID uuid.UUID, exp time.Time) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.Set(ctx, hash, &cache.RefreshEntry{UserID: userID, ExpiresAt: exp}); err != nil {
		log.From(ctx).Warn("refresh_cache_set_failed", slog.String("err", err.Error()))
	}
}

func (s *Service) cacheRevoke(ctx context.Context, hash string) {
	if s.rcache == nil || hash == "" {
		return
	}

	if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
		log.From(ctx).Warn("refresh_cache_revoke_failed", slog.String("err", err.Error()))
	}
}

func (s *Service) isRevokedInCache(ctx context.Context, hash string) bool {
	if s.rcache == nil {
		return false
	}

	entry, ok, err := s.rcache.Get(ctx, hash)
	if err != nil {
		log.From(ctx).Warn("refresh_cache_get_failed", slog.String("err", err.Error()))
		return false
	}

	return ok && entry.Revoked
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.session.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email (ожидается уже нормализованное значение).
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("Invalid email format")
	}

	return nil
}
