package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/httputil"
)

// Recover перехватывает панику обработчика и отвечает 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", rec),
					"path":      r.URL.Path,
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
					OK: false, Error: "внутренняя ошибка",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
