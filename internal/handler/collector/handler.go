package collector

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkessel/prompter/backend/internal/service/collector"
	"github.com/mkessel/prompter/backend/pkg/utils"
)

// Handler exposes the collector trigger endpoint.
type Handler struct {
	runner *collector.Runner
}

// New creates the collector handler.
func New(runner *collector.Runner) *Handler {
	return &Handler{runner: runner}
}

// RegisterRoutes registers the collector routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/collector/run", h.handleRun)
}

// handleRun executes the collector tool and refreshes the codebase context.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Run(r.Context()); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Codebase loaded successfully."})
}
