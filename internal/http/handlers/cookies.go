package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-media-hub/internal/http/middleware"
	"github.com/pribylovaa/go-media-hub/internal/models"
)

// setAuthCookies выставляет HttpOnly-cookie с токенами; Max-Age равен
// оставшемуся времени жизни токена.
func (h *Handlers) setAuthCookies(w http.ResponseWriter, t models.TokenPair) {
	now := time.Now()
	http.SetCookie(w, h.newCookie(middleware.AccessTokenCookie, t.AccessToken, maxAge(t.AccessExpiresAt, now)))
	http.SetCookie(w, h.newCookie(middleware.RefreshTokenCookie, t.RefreshToken, maxAge(t.RefreshExpiresAt, now)))
}

func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.newCookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, h.newCookie(middleware.RefreshTokenCookie, "", -1))
}

func (h *Handlers) newCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSiteMode(),
	}
}

// maxAge в секундах; 0 у http.Cookie значит "не задан", поэтому минимум 1.
func maxAge(exp, now time.Time) int {
	sec := int(exp.Sub(now).Seconds())
	if sec < 1 {
		return 1
	}
	return sec
}
