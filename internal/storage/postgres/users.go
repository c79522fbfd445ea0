package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// userColumns - общий список колонок для выборок пользователя.
// История просмотров собирается подзапросом в порядке position.
const userColumns = `
	u.id, u.username, u.email::text, u.fullname, u.password_hash,
	u.avatar, u.cover_image, COALESCE(u.refresh_token_hash, ''),
	u.created_at, u.updated_at,
	COALESCE((
		SELECT array_agg(h.video_id::text ORDER BY h.position)
		FROM watch_history h
		WHERE h.user_id = u.id
	), '{}')
`

// CreateUser создает нового пользователя в БД.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.CreateUser"

	query := `
		INSERT INTO users(id, username, email, fullname, password_hash, avatar, cover_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.Avatar,
		user.CoverImage,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	return s.queryUser(ctx, op, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// UserByUsername находит пользователя по username.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgres.UserByUsername"

	return s.queryUser(ctx, op, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username)
}

// UserByLogin находит пользователя по username или email.
// Пустой аргумент заменяется NULL и ни с чем не совпадает.
func (s *Storage) UserByLogin(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage.postgres.UserByLogin"

	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `SELECT ` + userColumns + `
		FROM users u
		WHERE u.username = NULLIF($1, '') OR u.email = NULLIF($2, '')::citext
		LIMIT 1`

	return s.queryUser(ctx, op, query, username, email)
}

func (s *Storage) queryUser(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	var (
		user    models.User
		history []string
	)

	err := s.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.Avatar,
		&user.CoverImage,
		&user.RefreshTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&history,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user.WatchHistory = make([]uuid.UUID, 0, len(history))
	for _, raw := range history {
		if id, err := uuid.Parse(raw); err == nil {
			user.WatchHistory = append(user.WatchHistory, id)
		}
	}

	return &user, nil
}

// SetRefreshToken перезаписывает хэш refresh-токена; пустой hash -> NULL.
func (s *Storage) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.postgres.SetRefreshToken"

	query := `
		UPDATE users
		SET refresh_token_hash = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`

	return s.execAffected(ctx, op, query, id, hash)
}

// SwapRefreshToken - условный UPDATE: строка меняется только если
// refresh_token_hash всё ещё равен oldHash.
func (s *Storage) SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string) error {
	const op = "storage.postgres.SwapRefreshToken"

	if oldHash == "" || newHash == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2
	`

	return s.execAffected(ctx, op, query, id, oldHash, newHash)
}

// UpdatePassword пишет только password_hash.
func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.postgres.UpdatePassword"

	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	return s.execAffected(ctx, op, query, id, hash)
}

// UpdateAccount меняет fullname/email.
func (s *Storage) UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (*models.User, error) {
	const op = "storage.postgres.UpdateAccount"

	query := `UPDATE users SET fullname = $2, email = $3, updated_at = now() WHERE id = $1`

	if err := s.execAffected(ctx, op, query, id, fullName, email); err != nil {
		return nil, err
	}

	return s.UserByID(ctx, id)
}

// UpdateImage меняет avatar или cover_image.
func (s *Storage) UpdateImage(ctx context.Context, id uuid.UUID, kind models.ImageKind, url string) (*models.User, error) {
	const op = "storage.postgres.UpdateImage"

	query := `UPDATE users SET avatar = $2, updated_at = now() WHERE id = $1`
	if kind == models.ImageCover {
		query = `UPDATE users SET cover_image = $2, updated_at = now() WHERE id = $1`
	}

	if err := s.execAffected(ctx, op, query, id, url); err != nil {
		return nil, err
	}

	return s.UserByID(ctx, id)
}

// AppendWatchHistory добавляет запись в конец истории.
func (s *Storage) AppendWatchHistory(ctx context.Context, id, videoID uuid.UUID) error {
	const op = "storage.postgres.AppendWatchHistory"

	query := `INSERT INTO watch_history(user_id, video_id) VALUES ($1, $2)`

	if _, err := s.db.Exec(ctx, query, id, videoID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// execAffected выполняет UPDATE и возвращает storage.ErrNotFound, если ни одна
// строка не изменилась.
func (s *Storage) execAffected(ctx context.Context, op, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
