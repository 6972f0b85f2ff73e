//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Command docmcp runs the document retrieval service: an HTTP API for
// ingesting project documents and searching them with vector retrieval,
// query transformation and reranking.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hipc/doc-mcp/chat"
	"github.com/Hipc/doc-mcp/config"
	"github.com/Hipc/doc-mcp/embedder/openai"
	"github.com/Hipc/doc-mcp/ingestion"
	"github.com/Hipc/doc-mcp/log"
	"github.com/Hipc/doc-mcp/query"
	"github.com/Hipc/doc-mcp/reranker"
	"github.com/Hipc/doc-mcp/retriever"
	"github.com/Hipc/doc-mcp/server"
	"github.com/Hipc/doc-mcp/storage/postgres"
	"github.com/Hipc/doc-mcp/summarizer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("docmcp: load config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, cfg.DatabaseURL,
		postgres.WithDimensions(cfg.EmbeddingDimensions))
	if err != nil {
		log.Fatalf("docmcp: connect storage: %v", err)
	}
	defer store.Close()

	chatOpts := []chat.Option{
		chat.WithModel(cfg.ChatModel),
		chat.WithAPIKey(cfg.ChatAPIKey),
	}
	if cfg.ChatBaseURL != "" {
		chatOpts = append(chatOpts, chat.WithBaseURL(cfg.ChatBaseURL))
	}
	chatClient := chat.New(chatOpts...)

	embOpts := []openai.Option{
		openai.WithModel(cfg.EmbeddingModel),
		openai.WithDimensions(cfg.EmbeddingDimensions),
		openai.WithAPIKey(cfg.EmbeddingAPIKey),
	}
	if cfg.EmbeddingBaseURL != "" {
		embOpts = append(embOpts, openai.WithBaseURL(cfg.EmbeddingBaseURL))
	}
	emb := openai.New(embOpts...)

	summOpts := []summarizer.Option{}
	if cfg.SummaryMaxTokens > 0 {
		summOpts = append(summOpts, summarizer.WithMaxTokens(cfg.SummaryMaxTokens))
	}
	summ := summarizer.New(chatClient, summOpts...)

	ing := ingestion.New(store, summ, emb,
		ingestion.WithDefaultStrategies(cfg.Strategies))
	ret := retriever.New(store, query.New(chatClient), emb,
		retriever.WithReranker(reranker.New(chatClient)))

	srv := server.New(ing, ret, store)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("docmcp: listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("docmcp: serve: %v", err)
		}
	case <-ctx.Done():
		log.Info("docmcp: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("docmcp: shutdown: %v", err)
		}
	}
}
