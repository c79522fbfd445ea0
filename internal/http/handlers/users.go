package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/http/middleware"
	"github.com/pribylovaa/go-media-hub/internal/http/models"
	"github.com/pribylovaa/go-media-hub/internal/http/response"
	domain "github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/service"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// RegisterUser принимает multipart/form-data: текстовые поля username, email,
// fullname, password и файлы avatar (обязателен) и coverImage.
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	cleanup, err := h.parseMultipart(r)
	defer cleanup()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	avatar, avatarFile, err := formAsset(r, "avatar")
	if err != nil {
		response.WriteError(w, r, response.BadRequest("Invalid avatar file"))
		return
	}

	cover, coverFile, err := formAsset(r, "coverImage")
	if err != nil {
		closeAll(avatarFile)
		response.WriteError(w, r, response.BadRequest("Invalid cover image file"))
		return
	}
	defer closeAll(avatarFile, coverFile)

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		FullName:   r.FormValue("fullname"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, models.UserFromModel(user), "User Registered Successfully!")
}

func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		response.WriteError(w, r, invalidBody())
		return
	}

	session, err := h.svc.Login(r.Context(), in.ToInput())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, session.Tokens)
	response.WriteJSON(w, http.StatusOK, models.LoginFromModel(session), "User logged in successfully")
}

// RefreshAccessToken берёт refresh-токен из cookie, иначе из тела запроса.
func (h *Handlers) RefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = c.Value
	}

	if token == "" {
		var in models.RefreshRequest
		// Пустое тело допустимо: тогда сервис ответит 401.
		if err := decodeStrict(r, &in); err != nil && !errors.Is(err, io.EOF) {
			response.WriteError(w, r, invalidBody())
			return
		}
		token = in.RefreshToken
	}

	session, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, session.Tokens)
	response.WriteJSON(w, http.StatusOK, models.TokensFromModel(session.Tokens), "Access token refreshed")
}

func (h *Handlers) LogoutUser(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.svc.Logout(r.Context(), user.ID); err != nil {
		response.WriteError(w, r, err)
		return
	}

	h.clearAuthCookies(w)
	response.WriteJSON(w, http.StatusOK, emptyObject{}, "User logged out")
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var in models.ChangePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		response.WriteError(w, r, invalidBody())
		return
	}

	if err := h.svc.ChangePassword(r.Context(), user.ID, in.OldPassword, in.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, emptyObject{}, "Password changed successfully")
}

func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	current, err := h.svc.CurrentUser(r.Context(), user.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.UserFromModel(current), "Current user fetched successfully")
}

func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var in models.UpdateAccountRequest
	if err := decodeStrict(r, &in); err != nil {
		response.WriteError(w, r, invalidBody())
		return
	}

	updated, err := h.svc.UpdateAccount(r.Context(), user.ID, in.FullName, in.Email)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.UserFromModel(updated), "Account details updated successfully")
}

func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.svc.UpdateAvatar, "Avatar updated successfully")
}

func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.svc.UpdateCoverImage, "Cover image updated successfully")
}

// imageUpdater - UpdateAvatar или UpdateCoverImage сервиса.
type imageUpdater func(ctx context.Context, userID uuid.UUID, asset *storage.Asset) (*domain.User, error)

func (h *Handlers) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	cleanup, err := h.parseMultipart(r)
	defer cleanup()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	asset, file, err := formAsset(r, field)
	if err != nil {
		response.WriteError(w, r, response.BadRequest("Invalid "+field+" file"))
		return
	}
	defer closeAll(file)

	updated, err := update(r.Context(), user.ID, asset)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, models.UserFromModel(updated), message)
}
