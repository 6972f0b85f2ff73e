//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package embedder provides interfaces and utilities for dense text embeddings.
package embedder

import (
	"context"
	"strings"
)

// Embedder is the interface that all embedders must implement.
//
// Blank or whitespace-only inputs are never sent to the remote endpoint; they
// yield a zero-length placeholder vector so batch results keep the caller's
// input-index mapping and downstream code can skip the row.
type Embedder interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embeddings for texts, batched against the remote
	// endpoint. Result i is always the vector for texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// EmbedContextual embeds content enriched with its surrounding context.
	// Used at ingest so child-span vectors reflect parent context.
	EmbedContextual(ctx context.Context, content string, ec Context) ([]float64, error)

	// Dimensions returns the dimensionality of produced vectors.
	Dimensions() int

	// Model returns the embedding model identifier.
	Model() string
}

// Context carries the fields that enrich a contextual embedding input.
type Context struct {
	Title   string
	DocType string
	Summary string
}

// ComposeContextual assembles the enriched input string, dropping absent
// fields. The layout is fixed so stored vectors remain comparable:
//
//	[title] …
//	[type] …
//	[summary] …
//	[content] …
func ComposeContextual(content string, ec Context) string {
	var parts []string
	if ec.Title != "" {
		parts = append(parts, "[title] "+ec.Title)
	}
	if ec.DocType != "" {
		parts = append(parts, "[type] "+ec.DocType)
	}
	if ec.Summary != "" {
		parts = append(parts, "[summary] "+ec.Summary)
	}
	parts = append(parts, "[content] "+content)
	return strings.Join(parts, "\n")
}
