// Package autopick — handlers.go обрабатывает плановый вызов автопрогноза.
package autopick

import (
	"net/http"

	"serotonyl.ru/bolao/internal/httputil"
)

// Handler — HTTP-вход для внешнего планировщика.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик автопрогноза.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleRun — POST /jobs/auto-pick.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Run(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, map[string]any{
		"matchesScanned":     res.MatchesScanned,
		"predictionsCreated": res.PredictionsCreated,
		"usagesRecorded":     res.UsagesRecorded,
	})
}
