//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hipc/doc-mcp/chat"
	"github.com/Hipc/doc-mcp/document"
)

// fakeChatServer answers /chat/completions with reply(userContent), counting
// calls.
func fakeChatServer(t *testing.T, calls *atomic.Int64, reply func(system, user string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		var system, user string
		for _, m := range body.Messages {
			switch m.Role {
			case "system":
				system = m.Content
			case "user":
				user = m.Content
			}
		}
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": reply(system, user),
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestSummarizer(srvURL string, opts ...Option) *Summarizer {
	c := chat.New(chat.WithBaseURL(srvURL), chat.WithAPIKey("test"),
		chat.WithRequestOptions(option.WithMaxRetries(0)))
	return New(c, opts...)
}

func TestSummarize_BlankInput(t *testing.T) {
	var calls atomic.Int64
	srv := fakeChatServer(t, &calls, func(_, _ string) string { return "unused" })
	defer srv.Close()

	s := newTestSummarizer(srv.URL)
	got, err := s.Summarize(context.Background(), "   \n", document.TypeAPIDoc)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, calls.Load(), "blank input must not call the model")
}

func TestSummarize_TypePrompt(t *testing.T) {
	var calls atomic.Int64
	var seenSystem string
	srv := fakeChatServer(t, &calls, func(system, _ string) string {
		seenSystem = system
		return "a summary"
	})
	defer srv.Close()

	s := newTestSummarizer(srv.URL)
	got, err := s.Summarize(context.Background(), "GET /users/{id}", document.TypeAPIDoc)
	require.NoError(t, err)
	assert.Equal(t, "a summary", got)
	assert.Contains(t, seenSystem, "API endpoint")

	// Unknown types fall back to the generic prompt.
	_, err = s.Summarize(context.Background(), "whatever", document.Type("MYSTERY"))
	require.NoError(t, err)
	assert.Contains(t, seenSystem, "key terms")
}

func TestSummarize_EmptyModelFallback(t *testing.T) {
	var calls atomic.Int64
	srv := fakeChatServer(t, &calls, func(_, _ string) string { return "  " })
	defer srv.Close()

	s := newTestSummarizer(srv.URL)

	long := strings.Repeat("abcde ", 100)
	got, err := s.Summarize(context.Background(), long, document.TypeTechDoc)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, []rune(long)[:200], []rune(strings.TrimSuffix(got, "…")))
}

func TestSummarize_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestSummarizer(srv.URL)
	_, err := s.Summarize(context.Background(), "content", document.TypeGeneralDoc)
	require.ErrorIs(t, err, ErrSummaryFailure)
}

func TestSummarizeBatch_Order(t *testing.T) {
	var calls atomic.Int64
	srv := fakeChatServer(t, &calls, func(_, user string) string {
		return "summary of " + user
	})
	defer srv.Close()

	s := newTestSummarizer(srv.URL, WithParallelism(3))

	inputs := make([]Input, 10)
	for i := range inputs {
		inputs[i] = Input{Content: fmt.Sprintf("span %d", i), Type: document.TypeGeneralDoc}
	}
	// A blank entry keeps its slot.
	inputs[4].Content = " "

	got, err := s.SummarizeBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, got, len(inputs))
	for i, summary := range got {
		if i == 4 {
			assert.Empty(t, summary)
			continue
		}
		assert.Equal(t, fmt.Sprintf("summary of span %d", i), summary)
	}
}
