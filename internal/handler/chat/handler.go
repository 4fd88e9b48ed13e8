package chat

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/mkessel/prompter/backend/internal/service/chat"
	"github.com/mkessel/prompter/backend/internal/service/llm"
	"github.com/mkessel/prompter/backend/pkg/utils"
)

// Handler exposes the chat endpoints.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/tokens/count", h.handleCountTokens)
	r.Get("/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
}

// handleChat relays one user message and streams the reply back as plain
// text. Errors before the first delta are JSON; afterwards the body is
// one-directional text and diagnostics arrive inside the stream.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	started := false
	sink := func(delta string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, delta); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	_, err := h.chatSvc.SendMessage(r.Context(), payload.SessionID, payload.Message, sink)
	if err != nil {
		if started {
			// Too late for a structured response; the service has already
			// pushed what diagnostics it could.
			log.Printf("[chat] request failed after streaming began: %v", err)
			return
		}
		respondSendError(w, err)
		return
	}

	if !started {
		// Zero content deltas is still a successful, empty stream.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// respondSendError maps a pre-stream failure to a structured error response.
func respondSendError(w http.ResponseWriter, err error) {
	var upstream *llm.UpstreamError
	switch {
	case errors.Is(err, chatService.ErrMessageRequired):
		utils.RespondError(w, http.StatusBadRequest, "No message provided.")
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.As(err, &upstream):
		utils.RespondError(w, upstream.StatusCode, upstream.Message)
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleCountTokens reports the input token count the next exchange would
// send upstream.
func (h *Handler) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewMessage string `json:"new_message"`
		SessionID  string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	count, err := h.chatSvc.CountInputTokens(r.Context(), payload.SessionID, payload.NewMessage)
	if err != nil {
		switch {
		case errors.Is(err, chatService.ErrMessageRequired):
			utils.RespondError(w, http.StatusBadRequest, "No message provided.")
		case errors.Is(err, chatService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]int{"input_token_count": count})
}

// handleListSessions returns session metadata, newest first.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chatSvc.ListSessions(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

// handleGetSession returns one session and its full ordered transcript.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"messages": messages,
	})
}
