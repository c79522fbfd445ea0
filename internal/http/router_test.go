package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/config"
	"github.com/pribylovaa/go-media-hub/internal/metrics"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/service"
	mock_handlers "github.com/pribylovaa/go-media-hub/mocks/handlers"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *mock_handlers.MockService, *metrics.HTTP) {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := mock_handlers.NewMockService(ctrl)
	m := metrics.NewHTTP(metrics.NewRegistry())

	h := NewRouter(svc, Options{
		Metrics:      m,
		Timeout:      time.Second,
		BasePath:     "/api/v1",
		BodyLimit:    1024,
		MaxAssetSize: 1024,
		CORSOrigins:  []string{"http://localhost:3000"},
		Cookie:       config.CookieConfig{Secure: true, SameSite: "strict", Path: "/"},
	})

	return h, svc, m
}

func TestRouter_PublicVideosHealth(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/videos/watch", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	require.Contains(t, rr.Body.String(), `"message":"All good!"`)
}

func TestRouter_ProtectedWithoutToken_401(t *testing.T) {
	h, svc, _ := newTestRouter(t)
	svc.EXPECT().Authenticate(gomock.Any(), "").
		Return(nil, &service.Error{Kind: service.ErrAuth, Message: "Unauthorized request"}).
		Times(3)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users/current-user"},
		{http.MethodGet, "/api/v1/users/c/neo"},
		{http.MethodPost, "/api/v1/users/logout"},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

		require.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)

		var env map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		require.Equal(t, false, env["success"])
		require.Equal(t, "Unauthorized request", env["message"])
		require.NotEmpty(t, env["requestId"])
	}
}

func TestRouter_BearerReachesHandler(t *testing.T) {
	h, svc, _ := newTestRouter(t)
	user := &models.User{ID: uuid.New(), Username: "neo"}

	svc.EXPECT().Authenticate(gomock.Any(), "tok").Return(user, nil)
	svc.EXPECT().CurrentUser(gomock.Any(), user.ID).Return(user, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"username":"neo"`)
}

func TestRouter_JSONBodyLimit(t *testing.T) {
	h, _, _ := newTestRouter(t)

	big := `{"username":"` + strings.Repeat("a", 2048) + `","password":"x"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(big)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_UnknownRoute_404(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}
