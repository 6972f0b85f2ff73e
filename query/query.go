//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package query transforms user queries into a form more likely to match
// stored content: unchanged, expanded with related terms, or replaced by a
// hypothetical document (HyDE). Every enhancement degrades to the original
// query, so the retrieval path never fails here.
package query

// Strategy tags how a query is transformed before embedding.
type Strategy string

// Query transformation strategies.
const (
	// StrategyDirect embeds the query unchanged. Chosen when the query
	// already contains precise identifiers.
	StrategyDirect Strategy = "direct"
	// StrategyExpansion rewrites the query adding synonyms and related
	// technical terms. Chosen for short or vocabulary-sparse queries.
	StrategyExpansion Strategy = "expansion"
	// StrategyHyDE embeds a hypothetical document that would answer the
	// query. Chosen for how/why/what-is questions.
	StrategyHyDE Strategy = "hyde"
)

// Mode selects how the transformer picks a strategy.
type Mode struct {
	// Smart classifies the query with the chat model (default behavior).
	Smart bool
	// ForceExpansion bypasses classification and applies expansion.
	ForceExpansion bool
	// ForceHyDE bypasses classification and applies HyDE.
	ForceHyDE bool
}

// Transformed is the outcome of a query transformation.
type Transformed struct {
	// Query is the effective text to embed.
	Query string
	// Strategy is the tag that was applied.
	Strategy Strategy
	// Reason explains the classification, when available.
	Reason string
	// Confidence is the classifier's self-reported confidence in [0, 1].
	Confidence float64
}
