//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package summarizer produces concise summaries of parent spans using the
// chat endpoint, with prompts specialized per document type.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/Hipc/doc-mcp/chat"
	"github.com/Hipc/doc-mcp/document"
	"github.com/Hipc/doc-mcp/log"
)

const (
	// DefaultMaxTokens caps summary length.
	DefaultMaxTokens = 200
	// DefaultParallelism bounds concurrent summary requests in a batch.
	DefaultParallelism = 5

	// fallbackChars is how much source text the truncation fallback keeps.
	fallbackChars = 200

	summaryTemperature = 0.3
)

const basePrompt = "You are a technical writer. Summarize the following text in a few " +
	"sentences, keeping the concrete identifiers a search engine would need. " +
	"Answer with the summary only."

// typePrompts adds per-type instructions to the base prompt.
var typePrompts = map[document.Type]string{
	document.TypeAPIDoc:       "Mention every API endpoint name, HTTP method, and parameter that appears.",
	document.TypeTechDoc:      "Mention the architectural elements, components, and technologies that appear.",
	document.TypeCodeLogicDoc: "Mention the function and type names that appear and what each one does.",
	document.TypeGeneralDoc:   "Keep the key terms and named entities that appear.",
}

// Summarizer generates parent-span summaries via the chat endpoint.
type Summarizer struct {
	chat        *chat.Client
	maxTokens   int
	parallelism int
}

// Option represents a functional option for configuring the Summarizer.
type Option func(*Summarizer)

// WithMaxTokens caps the summary token count.
func WithMaxTokens(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithParallelism sets the batch fan-out bound.
func WithParallelism(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New creates a summarizer backed by the given chat client.
func New(chatClient *chat.Client, opts ...Option) *Summarizer {
	s := &Summarizer{
		chat:        chatClient,
		maxTokens:   DefaultMaxTokens,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize returns a summary of content. Blank input returns an empty string
// without calling the model; an empty model response falls back to a
// truncation of the source.
func (s *Summarizer) Summarize(ctx context.Context, content string, docType document.Type) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	instructions, ok := typePrompts[docType]
	if !ok {
		instructions = typePrompts[document.TypeGeneralDoc]
	}

	summary, err := s.chat.Complete(ctx, chat.Request{
		System:      basePrompt + " " + instructions,
		User:        content,
		MaxTokens:   s.maxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: %w: %w", ErrSummaryFailure, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		log.Warnf("summarizer: model returned empty summary, falling back to truncation")
		return truncate(content, fallbackChars), nil
	}
	return summary, nil
}

// Input is one entry of a summarization batch.
type Input struct {
	Content string
	Type    document.Type
}

// SummarizeBatch summarizes inputs with bounded fan-out. Result i is the
// summary for inputs[i]; the first failure aborts the batch.
func (s *Summarizer) SummarizeBatch(ctx context.Context, inputs []Input) ([]string, error) {
	results := make([]string, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(s.parallelism)
	if err != nil {
		return nil, fmt.Errorf("summarizer: create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(inputs))

	for i, in := range inputs {
		wg.Add(1)
		idx, input := i, in
		if err := pool.Submit(func() {
			defer wg.Done()
			summary, err := s.Summarize(ctx, input.Content, input.Type)
			if err != nil {
				errCh <- err
				cancel()
				return
			}
			results[idx] = summary
		}); err != nil {
			wg.Done()
			errCh <- fmt.Errorf("summarizer: submit task: %w", err)
			cancel()
		}
	}

	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}
	return results, nil
}

// truncate keeps the first n runes of text with an ellipsis suffix.
func truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "…"
}
