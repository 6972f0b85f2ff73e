//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package config loads service configuration from the environment, with
// optional .env files for local development.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/Hipc/doc-mcp/chunking"
)

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultServerPort     = 8080
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultDimensions     = 1536
	DefaultLogLevel       = "info"
)

// Config is the full service configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL DSN. Required.
	DatabaseURL string

	// ChatAPIKey, ChatBaseURL and ChatModel configure the chat endpoint used
	// for summaries, query transformation and reranking.
	ChatAPIKey  string
	ChatBaseURL string
	ChatModel   string

	// EmbeddingAPIKey, EmbeddingBaseURL and EmbeddingModel configure the
	// embedding endpoint. Empty key/URL fall back to the chat values.
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingModel      string
	EmbeddingDimensions int

	// SummaryMaxTokens caps summary generation; zero keeps the default.
	SummaryMaxTokens int

	// Strategies are the chunking granularities applied at ingest when a
	// request does not override them.
	Strategies []chunking.Config

	ServerPort int
	LogLevel   string
}

// ErrMissingDatabaseURL indicates DATABASE_URL was not set.
var ErrMissingDatabaseURL = errors.New("config: DATABASE_URL is required")

// Load reads .env.local and .env when present, then builds the configuration
// from the environment.
func Load() (*Config, error) {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ChatAPIKey:       os.Getenv("CHAT_API_KEY"),
		ChatBaseURL:      os.Getenv("CHAT_BASE_URL"),
		ChatModel:        getenvDefault("CHAT_MODEL", DefaultChatModel),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingBaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		EmbeddingModel:   getenvDefault("EMBEDDING_MODEL", DefaultEmbeddingModel),
		LogLevel:         getenvDefault("LOG_LEVEL", DefaultLogLevel),
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = cfg.ChatAPIKey
	}
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = cfg.ChatBaseURL
	}

	var err error
	if cfg.EmbeddingDimensions, err = getenvInt("EMBEDDING_DIMENSIONS", DefaultDimensions); err != nil {
		return nil, err
	}
	if cfg.SummaryMaxTokens, err = getenvInt("SUMMARY_MAX_TOKENS", 0); err != nil {
		return nil, err
	}
	if cfg.ServerPort, err = getenvInt("SERVER_PORT", DefaultServerPort); err != nil {
		return nil, err
	}

	if cfg.Strategies, err = parseStrategies(os.Getenv("CHUNK_STRATEGIES")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseStrategies decodes the CHUNK_STRATEGIES JSON array, e.g.
// [{"parent_chunk_size":2000,"child_chunk_size":800,"overlap_percent":25}].
// An empty value yields the default strategy.
func parseStrategies(raw string) ([]chunking.Config, error) {
	if raw == "" {
		return []chunking.Config{chunking.DefaultConfig()}, nil
	}
	var entries []struct {
		Name            string `json:"name"`
		ParentChunkSize int    `json:"parent_chunk_size"`
		ChildChunkSize  int    `json:"child_chunk_size"`
		OverlapPercent  int    `json:"overlap_percent"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("config: parse CHUNK_STRATEGIES: %w", err)
	}
	if len(entries) == 0 {
		return []chunking.Config{chunking.DefaultConfig()}, nil
	}

	strategies := make([]chunking.Config, len(entries))
	for i, e := range entries {
		strategies[i] = chunking.Config{
			ParentChunkSize: e.ParentChunkSize,
			ChildChunkSize:  e.ChildChunkSize,
			OverlapPercent:  e.OverlapPercent,
			Name:            e.Name,
		}
		if err := strategies[i].Validate(); err != nil {
			return nil, fmt.Errorf("config: CHUNK_STRATEGIES[%d]: %w", i, err)
		}
	}
	return strategies, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}
