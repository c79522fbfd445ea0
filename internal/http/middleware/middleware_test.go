package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/metrics"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
	"github.com/pribylovaa/go-media-hub/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// capHandler - тестовый slog.Handler, который:
//   - аккумулирует базовые attrs, приходящие через Logger.With(...);
//   - собирает attrs последней записи в map[string]any.
type capHandler struct {
	mu      *sync.Mutex
	base    []slog.Attr
	last    *capRecord
	records *int
}

type capRecord struct {
	msg   string
	attrs map[string]any
}

func newCapHandler() *capHandler {
	return &capHandler{mu: &sync.Mutex{}, last: &capRecord{}, records: new(int)}
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records++
	h.last.msg = r.Message
	h.last.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.base = append(append([]slog.Attr(nil), h.base...), attrs...)
	return &clone
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

type errEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func TestChain_Order(t *testing.T) {
	order := []string{}

	m1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m1-end")
		})
	}

	m2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m2-end")
		})
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, m1, m2).ServeHTTP(rr, makeReq("/chain"))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenHeader, seenCtx string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get("X-Request-Id")
		seenCtx = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get("X-Request-Id")
	_, err := uuid.Parse(respID)
	require.NoError(t, err)
	require.Equal(t, respID, seenHeader)
	require.Equal(t, respID, seenCtx)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"
	var seenCtx string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtx = RequestIDFrom(r.Context())
	})

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set("X-Request-Id", given)
	Chain(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get("X-Request-Id"))
	require.Equal(t, given, seenCtx)
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	var hasDeadline bool
	var left time.Duration

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dl, ok := r.Context().Deadline()
		hasDeadline = ok
		if ok {
			left = time.Until(dl)
		}
	})

	Chain(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))

	require.True(t, hasDeadline)
	require.Greater(t, left, time.Duration(0))
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	var childDL time.Time

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	Chain(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout2").WithContext(parent))

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestTimeout_WritesEnvelope_WhenHandlerSilent(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	rr := httptest.NewRecorder()
	Chain(slow, Timeout(10*time.Millisecond)).ServeHTTP(rr, makeReq("/slow"))

	require.Equal(t, http.StatusGatewayTimeout, rr.Code)

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, http.StatusGatewayTimeout, env.StatusCode)
	require.False(t, env.Success)
	require.Equal(t, "Request timed out", env.Message)
}

func TestTimeout_KeepsHandlerResponse(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rr := httptest.NewRecorder()
	Chain(h, Timeout(10*time.Millisecond)).ServeHTTP(rr, makeReq("/slow2"))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Empty(t, rr.Body.String())
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	Chain(panicHandler, Recover()).ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, http.StatusInternalServerError, env.StatusCode)
	require.False(t, env.Success)
	require.NotContains(t, rr.Body.String(), "boom")
}

func TestLogging_WritesRecord_WithStatusDurBytesAndRequestID(t *testing.T) {
	h := newCapHandler()
	logger := slog.New(h)

	const rid = "rid-456"
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Не вызываем WriteHeader - статус должен стать 200 после Write.
		_, _ = w.Write([]byte("0123456789"))
	})

	handler := Chain(final, RequestID(), Logging(logger))

	rr := httptest.NewRecorder()
	req := makeReq("/log")
	req.Header.Set("X-Request-Id", rid)
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, *h.records)
	require.Equal(t, "http", h.last.msg)

	attrs := h.last.attrs
	require.Equal(t, http.MethodGet, attrs["method"])
	require.Equal(t, "/log", attrs["path"])
	require.EqualValues(t, http.StatusOK, attrs["status"])
	require.EqualValues(t, 10, attrs["bytes"])
	require.Equal(t, rid, attrs["request_id"])
	require.Contains(t, attrs, "dur")
}

func TestStatusWriter_CountsBytes_AndDefaultStatus200(t *testing.T) {
	sw := newStatusWriter(httptest.NewRecorder())
	require.Equal(t, http.StatusOK, sw.Status())

	_, _ = sw.Write([]byte("abcd"))

	require.Equal(t, http.StatusOK, sw.status)
	require.Equal(t, 4, sw.count)
	require.Same(t, sw, newStatusWriter(sw))
}

func TestBodyLimit_RejectsOversizedBody(t *testing.T) {
	var readErr error
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	Chain(h, BodyLimit(4)).ServeHTTP(httptest.NewRecorder(), req)

	var mbe *http.MaxBytesError
	require.True(t, errors.As(readErr, &mbe))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123"))
	Chain(h, BodyLimit(4)).ServeHTTP(httptest.NewRecorder(), req)
	require.NoError(t, readErr)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	reg := metrics.NewRegistry()
	m := metrics.NewHTTP(reg)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/users/c/{username}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), makeReq("/users/c/neo"))
	r.ServeHTTP(httptest.NewRecorder(), makeReq("/users/c/trinity"))
	r.ServeHTTP(httptest.NewRecorder(), makeReq("/nope"))

	require.Equal(t, 2, testutil.CollectAndCount(reg, "http_requests_total"))

	body := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(body, makeReq("/metrics"))
	require.Contains(t, body.Body.String(), `route="/users/c/{username}",status="204"} 2`)
	require.Contains(t, body.Body.String(), `route="unmatched",status="404"} 1`)
}

type fakeAuth struct {
	user  *models.User
	token string
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "" || token != f.token {
		return nil, &service.Error{Kind: service.ErrAuth, Message: "Unauthorized request"}
	}
	return f.user, nil
}

func TestAuthenticate_CookieFirstThenBearer(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "neo"}
	guard := Authenticate(fakeAuth{user: user, token: "good"})

	var seen *models.User
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
	})

	// cookie
	req := makeReq("/me")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"})
	req.Header.Set("Authorization", "Bearer bad")
	rr := httptest.NewRecorder()
	Chain(h, guard).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, user, seen)

	// bearer
	seen = nil
	req = makeReq("/me")
	req.Header.Set("Authorization", "Bearer good")
	rr = httptest.NewRecorder()
	Chain(h, guard).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, user, seen)
}

func TestAuthenticate_RejectsMissingOrInvalid(t *testing.T) {
	guard := Authenticate(fakeAuth{user: &models.User{ID: uuid.New()}, token: "good"})
	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	for _, header := range []string{"", "Basic good", "Bearer ", "Bearer other"} {
		req := makeReq("/me")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		Chain(h, guard).ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code, header)

		var env errEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		require.Equal(t, "Unauthorized request", env.Message)
	}

	require.False(t, called)
}

func TestAuthenticate_AddsUserIDToRequestLog(t *testing.T) {
	capH := newCapHandler()
	user := &models.User{ID: uuid.New()}

	var inner string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.From(r.Context()).Info("inner")
		inner, _ = capH.last.attrs["user_id"].(string)
	})

	req := makeReq("/me")
	req.Header.Set("Authorization", "Bearer good")
	Chain(h, RequestID(), Logging(slog.New(capH)), Authenticate(fakeAuth{user: user, token: "good"})).
		ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, user.ID.String(), inner)
	require.Equal(t, "http", capH.last.msg)
	require.Equal(t, user.ID.String(), capH.last.attrs["user_id"])
}
