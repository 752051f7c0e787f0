// Package middleware содержит промежуточные обработчики HTTP:
// журнал запросов, метрики, восстановление после паники,
// проверку токенов и rate-limiting.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/metrics"
)

// statusRecorder запоминает код ответа.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routeName — шаблон маршрута mux (/pools/{poolId}/points), чтобы не плодить метки.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// AccessLog пишет запрос в журнал и в метрики.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		done := metrics.HTTPStarted()

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := routeName(r)
		done(strings.ToUpper(r.Method), route, rec.status, elapsed)

		entry := log.WithFields(log.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   rec.status,
			"duration": elapsed.Round(time.Microsecond).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("Запрос завершился ошибкой")
			return
		}
		entry.Debug("Входящий запрос")
	})
}
