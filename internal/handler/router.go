package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/mkessel/prompter/backend/internal/handler/chat"
	collectorHandler "github.com/mkessel/prompter/backend/internal/handler/collector"
	scratchpadHandler "github.com/mkessel/prompter/backend/internal/handler/scratchpad"
	middlewarePkg "github.com/mkessel/prompter/backend/internal/middleware"
	chatService "github.com/mkessel/prompter/backend/internal/service/chat"
	collectorService "github.com/mkessel/prompter/backend/internal/service/collector"
	"github.com/mkessel/prompter/backend/internal/service/contextstore"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, contexts *contextstore.Store, runner *collectorService.Runner) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(chatSvc).RegisterRoutes(api)
		scratchpadHandler.New(contexts).RegisterRoutes(api)
		collectorHandler.New(runner).RegisterRoutes(api)
	})

	return r
}
