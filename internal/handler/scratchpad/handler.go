package scratchpad

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkessel/prompter/backend/internal/service/contextstore"
	"github.com/mkessel/prompter/backend/internal/store"
	"github.com/mkessel/prompter/backend/pkg/utils"
)

// Handler exposes the scratch-pad endpoints.
type Handler struct {
	contexts *contextstore.Store
}

// New creates the scratch-pad handler.
func New(contexts *contextstore.Store) *Handler {
	return &Handler{contexts: contexts}
}

// RegisterRoutes registers the scratch-pad routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/scratchpad", h.handleList)
	r.Put("/scratchpad/{label}", h.handleUpdate)
}

// handleList returns all slots in their fixed order.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sections, err := h.contexts.ListSections(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, sections)
}

// handleUpdate overwrites one slot's content wholesale.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.contexts.SetSection(r.Context(), label, payload.Content); err != nil {
		if errors.Is(err, store.ErrSectionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "scratch pad section not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
