// Package httputil — общие помощники HTTP-обработчиков:
// JSON-ответы в конверте {"ok": ...}, разбор тела и пользователь из контекста.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/common"
)

// maxBodyBytes — предел тела запроса.
const maxBodyBytes = 1 << 20

// WriteJSON пишет тело как есть.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Debug("Не удалось записать ответ")
	}
}

// WriteOK пишет {"ok": true, ...fields}.
func WriteOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// WriteError выбирает код ответа по ошибке и пишет {"ok": false, "error": ...}.
// Для 5xx клиенту уходит только текст сентинела, детали остаются в логе.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Ошибка обработки запроса")
		msg = publicMessage(err)
	}
	WriteJSON(w, status, ErrorResponse{OK: false, Error: msg})
}

// StatusFor сопоставляет ошибку с HTTP-кодом.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidSchedulerSecret):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrNoInventory):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		return common.ErrNotConfigured.Error()
	case errors.Is(err, common.ErrPersistence):
		return common.ErrPersistence.Error()
	default:
		return "внутренняя ошибка"
	}
}

// DecodeJSON разбирает тело запроса в v. Пустое тело допустимо,
// если allowEmpty; иначе это ErrValidation.
func DecodeJSON(r *http.Request, v any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: пустое тело запроса", common.ErrValidation)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: некорректный JSON: %v", common.ErrValidation, err)
	}
	return nil
}

type ctxKey struct{}

// WithUserID кладёт идентификатор пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFrom достаёт идентификатор пользователя из контекста.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
