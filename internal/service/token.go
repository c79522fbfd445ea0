package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
)

// errInvalidToken - подпись, срок, issuer/audience или claims не прошли проверку.
var errInvalidToken = errors.New("invalid token")

// leeway - допуск на расхождение часов при проверке exp/iat.
const leeway = 5 * time.Second

type accessClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssueTokenPair выпускает пару access+refresh для пользователя.
// Токены подписываются разными секретами и имеют разные TTL из конфигурации.
// refresh содержит случайный jti, поэтому два токена, выпущенные в одну
// секунду, различаются.
func (s *Service) IssueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.token.IssueTokenPair"

	lg := log.From(ctx)
	now := time.Now().UTC()
	accessExp := now.Add(s.cfg.AccessTokenTTL)
	refreshExp := now.Add(s.cfg.RefreshTokenTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: s.registered(user.ID, now, accessExp, ""),
	})

	accessSigned, err := access.SignedString([]byte(s.cfg.AccessTokenSecret))
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		UserID:           user.ID.String(),
		RegisteredClaims: s.registered(user.ID, now, refreshExp, uuid.NewString()),
	})

	refreshSigned, err := refresh.SignedString([]byte(s.cfg.RefreshTokenSecret))
	if err != nil {
		lg.Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      accessSigned,
		RefreshToken:     refreshSigned,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) registered(id uuid.UUID, now, exp time.Time, jti string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   id.String(),
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings(s.cfg.Audience),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

// parseAccessToken проверяет access-токен и возвращает ID пользователя.
func (s *Service) parseAccessToken(tokenStr string) (uuid.UUID, error) {
	const op = "service.token.parseAccessToken"

	var claims accessClaims
	if err := s.parse(tokenStr, &claims, s.cfg.AccessTokenSecret); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return claimUserID(op, claims.UserID)
}

// parseRefreshToken проверяет refresh-токен и возвращает ID пользователя.
func (s *Service) parseRefreshToken(tokenStr string) (uuid.UUID, error) {
	const op = "service.token.parseRefreshToken"

	var claims refreshClaims
	if err := s.parse(tokenStr, &claims, s.cfg.RefreshTokenSecret); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return claimUserID(op, claims.UserID)
}

func (s *Service) parse(tokenStr string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("token expired: %w", errInvalidToken)
		}

		return errInvalidToken
	}

	if !token.Valid {
		return errInvalidToken
	}

	return nil
}

func claimUserID(op, raw string) (uuid.UUID, error) {
	uid, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, errInvalidToken)
	}

	return uid, nil
}

// hashToken - sha256 от токена в base64url. В хранилище и кэше лежит только хэш.
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
