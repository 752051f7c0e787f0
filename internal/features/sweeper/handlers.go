// Package sweeper — handlers.go обрабатывает плановый вызов чистильщика.
package sweeper

import (
	"net/http"

	"serotonyl.ru/bolao/internal/httputil"
)

// Handler — HTTP-вход для внешнего планировщика.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик чистильщика.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSweep — POST /jobs/sweep-expired.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.SweepExpired(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, map[string]any{
		"processed": res.Processed,
		"refunded":  res.Refunded,
		"expired":   res.Expired,
		"skipped":   res.Skipped,
	})
}
