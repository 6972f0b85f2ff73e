//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package retriever runs the read path: transform the query, embed it,
// search child chunks by cosine similarity and optionally rerank the
// candidates with a chat model.
package retriever

import (
	"context"
	"errors"
	"strings"

	"github.com/Hipc/doc-mcp/embedder"
	"github.com/Hipc/doc-mcp/query"
	"github.com/Hipc/doc-mcp/reranker"
	"github.com/Hipc/doc-mcp/storage/postgres"
	"github.com/Hipc/doc-mcp/telemetry"
)

// Defaults applied when a request leaves a knob unset.
const (
	DefaultTopK      = 10
	DefaultThreshold = 0.3
)

// candidateFactor widens the vector search when reranking, so the model
// sees more than the final result count.
const candidateFactor = 3

// ErrEmptyQuery indicates a search request without a query.
var ErrEmptyQuery = errors.New("retriever: query is empty")

// Searcher is the vector search surface the retriever needs.
type Searcher interface {
	SearchChildren(ctx context.Context, q postgres.SearchQuery) ([]*postgres.SearchResult, error)
}

// Transformer rewrites queries before embedding.
type Transformer interface {
	Transform(ctx context.Context, q string, mode query.Mode) *query.Transformed
}

// Reranker re-orders candidates by model-judged relevance.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []reranker.Candidate, topK int) []reranker.Candidate
}

// Request describes one search.
type Request struct {
	Query       string
	ProjectName string
	// TopK caps the number of results; zero means DefaultTopK.
	TopK int
	// Threshold drops hits below this cosine similarity. Zero means
	// DefaultThreshold; pass a negative value to disable the cutoff.
	Threshold float64
	// Mode selects the query transformation strategy.
	Mode query.Mode
	// Rerank enables the chat-model rerank stage.
	Rerank bool
}

// Item is one search hit. Score is the fused relevance score when reranking
// ran, the cosine similarity otherwise.
type Item struct {
	postgres.SearchResult
	Score float64
}

// Result is the outcome of one search.
type Result struct {
	Items []Item
	// EffectiveQuery is the text that was embedded.
	EffectiveQuery string
	// Strategy tags how the query was transformed.
	Strategy query.Strategy
	// Reason explains the strategy choice, when available.
	Reason string
}

// Retriever answers search requests.
type Retriever struct {
	searcher    Searcher
	transformer Transformer
	embedder    embedder.Embedder
	reranker    Reranker
}

// Option represents a functional option for configuring the Retriever.
type Option func(*Retriever)

// WithReranker enables the rerank stage with the given reranker.
func WithReranker(r Reranker) Option {
	return func(rt *Retriever) {
		rt.reranker = r
	}
}

// New creates a retriever over the given searcher, transformer and embedder.
func New(searcher Searcher, transformer Transformer, emb embedder.Embedder, opts ...Option) *Retriever {
	rt := &Retriever{
		searcher:    searcher,
		transformer: transformer,
		embedder:    emb,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Retrieve answers one search request. Reranking scores candidates against
// the original query, not the transformed one, so HyDE rewrites cannot skew
// the relevance judgment.
func (rt *Retriever) Retrieve(ctx context.Context, req Request) (*Result, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "search")
	defer span.End()

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := req.Threshold
	switch {
	case threshold == 0:
		threshold = DefaultThreshold
	case threshold < 0:
		// Cosine similarity is never below -1, so this admits every hit.
		threshold = -1
	}

	transformed := rt.transformer.Transform(ctx, req.Query, req.Mode)
	span.SetAttributes(telemetry.String(telemetry.KeyStrategy, string(transformed.Strategy)))

	vec, err := rt.embedder.Embed(ctx, transformed.Query)
	if err != nil {
		return nil, err
	}

	limit := topK
	rerank := req.Rerank && rt.reranker != nil
	if rerank {
		limit = topK * candidateFactor
	}
	hits, err := rt.searcher.SearchChildren(ctx, postgres.SearchQuery{
		Embedding:   vec,
		ProjectName: req.ProjectName,
		Threshold:   threshold,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		EffectiveQuery: transformed.Query,
		Strategy:       transformed.Strategy,
		Reason:         transformed.Reason,
	}
	if rerank {
		result.Items = rt.rerankHits(ctx, req.Query, hits, topK)
	} else {
		for _, hit := range hits {
			if len(result.Items) == topK {
				break
			}
			result.Items = append(result.Items, Item{SearchResult: *hit, Score: hit.Similarity})
		}
	}
	span.SetAttributes(telemetry.Int(telemetry.KeyResultCount, len(result.Items)))
	return result, nil
}

func (rt *Retriever) rerankHits(ctx context.Context, originalQuery string, hits []*postgres.SearchResult, topK int) []Item {
	if len(hits) == 0 {
		return nil
	}
	byID := make(map[string]*postgres.SearchResult, len(hits))
	candidates := make([]reranker.Candidate, len(hits))
	for i, hit := range hits {
		byID[hit.ChildChunkID] = hit
		candidates[i] = reranker.Candidate{
			ID:         hit.ChildChunkID,
			Content:    hit.ChildContent,
			Summary:    hit.Summary,
			Similarity: hit.Similarity,
		}
	}

	ranked := rt.reranker.Rerank(ctx, originalQuery, candidates, topK)
	items := make([]Item, 0, len(ranked))
	for _, c := range ranked {
		hit, ok := byID[c.ID]
		if !ok {
			continue
		}
		item := Item{SearchResult: *hit, Score: c.Score}
		// Reranking replaces the reported similarity with the fused score.
		item.Similarity = c.Similarity
		items = append(items, item)
	}
	return items
}
