//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hipc/doc-mcp/embedder"
)

// fakeEmbeddingServer serves the /embeddings contract. Each input string is
// embedded as [float64(len(input)), 1] and, to exercise order restoration,
// response items are returned in reverse index order.
func fakeEmbeddingServer(t *testing.T, fail bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
			return
		}
		var body struct {
			Input any    `json:"input"`
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		var inputs []string
		switch v := body.Input.(type) {
		case string:
			inputs = []string{v}
		case []any:
			for _, item := range v {
				inputs = append(inputs, item.(string))
			}
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		items := make([]item, 0, len(inputs))
		for i := len(inputs) - 1; i >= 0; i-- {
			items = append(items, item{
				Object:    "embedding",
				Embedding: []float64{float64(len(inputs[i])), 1},
				Index:     i,
			})
		}
		resp := map[string]any{
			"object": "list",
			"data":   items,
			"model":  body.Model,
			"usage":  map[string]int{"prompt_tokens": 0, "total_tokens": 0},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestEmbedBatch_OrderAndBlanks(t *testing.T) {
	srv := fakeEmbeddingServer(t, false)
	defer srv.Close()

	e := New(
		WithBaseURL(srv.URL),
		WithAPIKey("test"),
		WithModel("text-embedding-3-small"),
		WithBatchSize(2), // force multiple batches
	)

	texts := []string{"a", "   ", "ccc", "", "eeeee", "ff"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// Blank inputs receive zero-length placeholders.
	assert.Empty(t, vectors[1])
	assert.Empty(t, vectors[3])

	// Non-blank results line up with their inputs despite reversed response order.
	assert.Equal(t, []float64{1, 1}, vectors[0])
	assert.Equal(t, []float64{3, 1}, vectors[2])
	assert.Equal(t, []float64{5, 1}, vectors[4])
	assert.Equal(t, []float64{2, 1}, vectors[5])
}

func TestEmbedBatch_AllBlank(t *testing.T) {
	// No server: blank-only input must not hit the network.
	e := New(WithBaseURL("http://127.0.0.1:0"), WithAPIKey("test"))

	vectors, err := e.EmbedBatch(context.Background(), []string{"", "  \n"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Empty(t, vectors[0])
	assert.Empty(t, vectors[1])
}

func TestEmbed_Single(t *testing.T) {
	srv := fakeEmbeddingServer(t, false)
	defer srv.Close()

	e := New(WithBaseURL(srv.URL), WithAPIKey("test"))
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 1}, vec)
}

func TestEmbed_Failure(t *testing.T) {
	srv := fakeEmbeddingServer(t, true)
	defer srv.Close()

	e := New(WithBaseURL(srv.URL), WithAPIKey("test"),
		WithRequestOptions(option.WithMaxRetries(0)))
	_, err := e.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, embedder.ErrEmbeddingFailure)
}

func TestEmbed_EmptyResponseFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"object": "list", "data": []any{}, "model": "m"}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	e := New(WithBaseURL(srv.URL), WithAPIKey("test"),
		WithRequestOptions(option.WithMaxRetries(0)))
	_, err := e.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, embedder.ErrEmbeddingFailure)
}

func TestEmbedContextual(t *testing.T) {
	srv := fakeEmbeddingServer(t, false)
	defer srv.Close()

	e := New(WithBaseURL(srv.URL), WithAPIKey("test"))

	enriched := embedder.ComposeContextual("body", embedder.Context{Title: "T"})
	want, err := e.Embed(context.Background(), enriched)
	require.NoError(t, err)

	got, err := e.EmbedContextual(context.Background(), "body", embedder.Context{Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Blank content is skipped without a remote call.
	blank, err := e.EmbedContextual(context.Background(), "  ", embedder.Context{Title: "T"})
	require.NoError(t, err)
	assert.Empty(t, blank)
}
