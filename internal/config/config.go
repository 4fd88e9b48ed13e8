// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config aggregates all service settings.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Store     StoreConfig
	Collector CollectorConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// AIConfig describes the upstream completion API and prompt behavior.
type AIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	PromptMode string
}

// StoreConfig describes the SQLite database location.
type StoreConfig struct {
	Path string
}

// CollectorConfig describes the external codebase collector tool.
type CollectorConfig struct {
	Script     string
	Dir        string
	OutputPath string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Store: StoreConfig{
			Path: getEnvOrDefault("DB_PATH", "prompter.db"),
		},
		Collector: CollectorConfig{
			Script:     getEnvOrDefault("COLLECTOR_SCRIPT", "codecollector"),
			Dir:        strings.TrimSpace(os.Getenv("COLLECTOR_DIR")),
			OutputPath: getEnvOrDefault("COLLECTOR_OUTPUT", "codebase.prompt"),
		},
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// Allow ":5000" or "127.0.0.1:5000" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadAIConfig() (AIConfig, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return AIConfig{}, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return AIConfig{
		APIKey:     apiKey,
		BaseURL:    getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:      getEnvOrDefault("MODEL", "gpt-3.5-turbo"),
		PromptMode: getEnvOrDefault("PROMPT_MODE", "simple"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
