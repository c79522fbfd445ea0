// response - единый формат ответов REST API.
//
// Успех:  {"statusCode", "data", "message", "success": true}
// Ошибка: {"statusCode", "data": null, "message", "success": false, "errors": [...]}
//
// Виды ошибок сервиса маппятся на HTTP-статусы; всё остальное - 500 с
// общим сообщением без деталей.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-media-hub/internal/pkg/log"
	"github.com/pribylovaa/go-media-hub/internal/service"
)

// StatusClientClosedRequest - нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Envelope - успешный ответ.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope - ответ об ошибке.
// RequestID прокидывается из X-Request-Id для трассировки.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
	RequestID  string   `json:"requestId,omitempty"`
}

// WriteJSON пишет успешный ответ с нужным Content-Type.
func WriteJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - *service.Error - статус по виду, сообщение и детали из ошибки;
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504;
//   - nil и всё прочее -> 500 "Internal server error".
func ToHTTP(err error) (int, ErrorEnvelope) {
	var se *service.Error
	if errors.As(err, &se) {
		status := statusFromKind(se.Kind)
		details := se.Details
		if details == nil {
			details = []string{}
		}

		return status, ErrorEnvelope{
			StatusCode: status,
			Message:    se.Message,
			Errors:     details,
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return errorEnvelope(StatusClientClosedRequest, "Request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return errorEnvelope(http.StatusGatewayTimeout, "Request timed out")
	default:
		return errorEnvelope(http.StatusInternalServerError, "Internal server error")
	}
}

// BadRequest - ошибка разбора входных данных на транспортном уровне.
func BadRequest(msg string, details ...string) error {
	return &service.Error{Kind: service.ErrValidation, Message: msg, Details: details}
}

// WriteError пишет ответ об ошибке. Внутренние ошибки логируются
// request-scoped логгером, клиенту уходит только общее сообщение.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if status >= http.StatusInternalServerError && err != nil {
		log.From(r.Context()).Error("request_failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("err", err.Error()),
		)
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func statusFromKind(kind error) int {
	switch {
	case errors.Is(kind, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func errorEnvelope(status int, msg string) (int, ErrorEnvelope) {
	return status, ErrorEnvelope{
		StatusCode: status,
		Message:    msg,
		Errors:     []string{},
	}
}
