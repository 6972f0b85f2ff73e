//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package reranker re-orders vector search candidates with a chat-model
// relevance judgment. Scoring failures degrade to the incoming vector order,
// so reranking never makes a search fail.
package reranker

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hipc/doc-mcp/chat"
	"github.com/Hipc/doc-mcp/internal/llmjson"
	"github.com/Hipc/doc-mcp/log"
)

const (
	// DefaultFallbackScore is assigned to candidates the model did not score.
	DefaultFallbackScore = 5.0

	// vectorWeight and modelWeight fuse vector similarity with the model's
	// normalized relevance score.
	vectorWeight = 0.3
	modelWeight  = 0.7

	scoreTemperature = 0.1

	maxSummaryChars = 500
	maxContentChars = 200
)

const scorePrompt = `You rate how relevant each document fragment is to a search query.
Score every fragment from 0 (irrelevant) to 10 (directly answers the query).
Respond with JSON only: [{"id": <fragment id>, "score": <0-10>}, ...] covering every fragment.`

// Candidate is one vector search hit offered for reranking.
type Candidate struct {
	// ID identifies the child chunk behind this candidate.
	ID string
	// Content is the child chunk text.
	Content string
	// Summary is the parent chunk summary, empty when none was generated.
	Summary string
	// Similarity is the cosine similarity from the vector search, in [0, 1].
	// After reranking it is replaced by the fused score.
	Similarity float64
	// Score is the fused relevance score. Zero until reranking assigns it.
	Score float64
}

// Reranker scores candidates against a query with a chat model.
type Reranker struct {
	chat          *chat.Client
	fallbackScore float64
}

// Option represents a functional option for configuring the Reranker.
type Option func(*Reranker)

// WithFallbackScore sets the score used for candidates the model omits.
func WithFallbackScore(score float64) Option {
	return func(r *Reranker) {
		r.fallbackScore = score
	}
}

// New creates a reranker backed by the given chat client.
func New(chatClient *chat.Client, opts ...Option) *Reranker {
	r := &Reranker{
		chat:          chatClient,
		fallbackScore: DefaultFallbackScore,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank scores candidates against query, fuses the model score with the
// vector similarity and returns the topK best candidates in descending fused
// order. The fused score replaces each candidate's Similarity. On any model
// or parse failure the incoming vector order is returned truncated to topK.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) []Candidate {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	scores, err := r.score(ctx, query, candidates)
	if err != nil {
		log.Warnf("reranker: scoring failed, keeping vector order: %v", err)
		kept := make([]Candidate, len(candidates))
		copy(kept, candidates)
		for i := range kept {
			kept[i].Score = kept[i].Similarity
		}
		return truncate(kept, topK)
	}

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		modelScore, ok := scores[i+1]
		if !ok {
			modelScore = r.fallbackScore
		}
		combined := vectorWeight*ranked[i].Similarity + modelWeight*(modelScore/10)
		ranked[i].Score = combined
		ranked[i].Similarity = combined
	}
	// Stable insertion sort keeps vector order between equal fused scores.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Score > ranked[j-1].Score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return truncate(ranked, topK)
}

// score asks the model for per-candidate relevance and returns scores keyed
// by the 1-based fragment position shown in the prompt, clamped to [0, 10].
func (r *Reranker) score(ctx context.Context, query string, candidates []Candidate) (map[int]float64, error) {
	raw, err := r.chat.Complete(ctx, chat.Request{
		System:      scorePrompt,
		User:        buildScoreInput(query, candidates),
		Temperature: scoreTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("reranker: score request failed: %w", err)
	}

	arr, err := llmjson.ExtractArray(raw)
	if err != nil {
		return nil, fmt.Errorf("reranker: no score array in model output: %w", err)
	}

	scores := make(map[int]float64, len(candidates))
	for _, item := range arr.Array() {
		id := int(item.Get("id").Int())
		if id < 1 || id > len(candidates) {
			continue
		}
		score := item.Get("score").Float()
		if score < 0 {
			score = 0
		}
		if score > 10 {
			score = 10
		}
		scores[id] = score
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("reranker: model scored no candidates")
	}
	return scores, nil
}

// buildScoreInput renders the query and candidate digest handed to the model.
// Fragments are labeled with their 1-based position; summaries and contents
// are clipped so large candidate sets stay inside the context window.
func buildScoreInput(query string, candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nFragments:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "---\nid: %d\n", i+1)
		if summary := clip(c.Summary, maxSummaryChars); summary != "" {
			fmt.Fprintf(&b, "summary: %s\n", summary)
		}
		fmt.Fprintf(&b, "content: %s\n", clip(c.Content, maxContentChars))
	}
	return b.String()
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func truncate(candidates []Candidate, topK int) []Candidate {
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}
