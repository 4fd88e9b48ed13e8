package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkessel/prompter/backend/internal/config"
	"github.com/mkessel/prompter/backend/internal/handler"
	chatService "github.com/mkessel/prompter/backend/internal/service/chat"
	"github.com/mkessel/prompter/backend/internal/service/collector"
	"github.com/mkessel/prompter/backend/internal/service/contextstore"
	"github.com/mkessel/prompter/backend/internal/service/llm"
	"github.com/mkessel/prompter/backend/internal/service/prompt"
	"github.com/mkessel/prompter/backend/internal/service/token"
	"github.com/mkessel/prompter/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	contexts := contextstore.New(db)

	strategy, err := prompt.ForMode(cfg.AI.PromptMode, contexts)
	if err != nil {
		log.Fatalf("failed to configure prompt strategy: %v", err)
	}
	log.Printf("prompt composition mode: %s", cfg.AI.PromptMode)

	relay := llm.NewClient(llm.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	})

	chatSvc := chatService.NewService(db, strategy, token.NewCounter(), relay)

	runner := &collector.Runner{
		Script:     cfg.Collector.Script,
		Dir:        cfg.Collector.Dir,
		OutputPath: cfg.Collector.OutputPath,
		Contexts:   contexts,
	}

	router := handler.NewRouter(chatSvc, contexts, runner)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Prompter backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
