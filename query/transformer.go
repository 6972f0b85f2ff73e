//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package query

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Hipc/doc-mcp/chat"
	"github.com/Hipc/doc-mcp/internal/llmjson"
	"github.com/Hipc/doc-mcp/log"
)

const (
	classifyTemperature = 0.1
	rewriteTemperature  = 0.3
	rewriteMaxTokens    = 150
)

const classifyPrompt = `You classify search queries for a documentation retrieval system.
Pick one strategy:
- "direct": the query already contains precise identifiers (CamelCase, snake_case, dotted calls, backticks, exact API names).
- "expansion": the query is short or vocabulary-sparse and should be rewritten with synonyms and related technical terms.
- "hyde": the query is a how/why/what-is question, troubleshooting, or concept explanation; a hypothetical answer document should be embedded instead.
Respond with JSON only: {"strategy": "...", "reason": "...", "confidence": 0.0-1.0}`

const expandPrompt = "Rewrite the search query into roughly 100-150 characters, adding synonyms " +
	"and related technical terms while preserving the original intent. " +
	"Respond with the rewritten query only."

const hydePrompt = "Write a 150-250 character passage of a technical document that, if it existed, " +
	"would answer the question. Use a technical documentation voice; illustrative code is allowed. " +
	"Respond with the passage only."

// Transformer turns a user query into its effective form for embedding.
type Transformer struct {
	chat *chat.Client
}

// Option represents a functional option for configuring the Transformer.
type Option func(*Transformer)

// New creates a transformer backed by the given chat client.
func New(chatClient *chat.Client, opts ...Option) *Transformer {
	t := &Transformer{chat: chatClient}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform produces the effective query for q under the given mode. It never
// returns an error: every enhancement falls back to the original query.
func (t *Transformer) Transform(ctx context.Context, q string, mode Mode) *Transformed {
	switch {
	case mode.ForceExpansion:
		return t.rewrite(ctx, q, StrategyExpansion, "expansion forced by caller")
	case mode.ForceHyDE:
		return t.rewrite(ctx, q, StrategyHyDE, "hyde forced by caller")
	case mode.Smart:
		tr := t.classify(ctx, q)
		if tr.Strategy == StrategyDirect {
			return tr
		}
		return t.rewrite(ctx, q, tr.Strategy, tr.Reason)
	default:
		return &Transformed{Query: q, Strategy: StrategyDirect}
	}
}

// classify asks the chat model for a strategy; malformed or failed responses
// fall back to rule-based classification.
func (t *Transformer) classify(ctx context.Context, q string) *Transformed {
	raw, err := t.chat.Complete(ctx, chat.Request{
		System:      classifyPrompt,
		User:        q,
		Temperature: classifyTemperature,
	})
	if err != nil {
		log.Warnf("query: classifier call failed, using rule-based classification: %v", err)
		return classifyByRules(q)
	}

	obj, err := llmjson.ExtractObject(raw)
	if err != nil {
		log.Warnf("query: classifier returned malformed JSON, using rule-based classification")
		return classifyByRules(q)
	}
	strategy := Strategy(obj.Get("strategy").String())
	switch strategy {
	case StrategyDirect, StrategyExpansion, StrategyHyDE:
	default:
		log.Warnf("query: classifier returned unknown strategy %q, using rule-based classification", strategy)
		return classifyByRules(q)
	}
	return &Transformed{
		Query:      q,
		Strategy:   strategy,
		Reason:     obj.Get("reason").String(),
		Confidence: obj.Get("confidence").Float(),
	}
}

// rewrite applies the expansion or HyDE prompt. On failure or an empty
// rewrite the original query is kept and the strategy tag is preserved.
func (t *Transformer) rewrite(ctx context.Context, q string, strategy Strategy, reason string) *Transformed {
	prompt := expandPrompt
	if strategy == StrategyHyDE {
		prompt = hydePrompt
	}

	rewritten, err := t.chat.Complete(ctx, chat.Request{
		System:      prompt,
		User:        q,
		MaxTokens:   rewriteMaxTokens,
		Temperature: rewriteTemperature,
	})
	if err != nil {
		log.Warnf("query: %s rewrite failed, using original query: %v", strategy, err)
		return &Transformed{Query: q, Strategy: strategy, Reason: reason}
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return &Transformed{Query: q, Strategy: strategy, Reason: reason}
	}
	return &Transformed{Query: rewritten, Strategy: strategy, Reason: reason}
}

// Question words that route a query to HyDE.
var questionPrefixes = []string{
	"如何", "怎么", "为什么", "什么是",
	"how", "what", "why", "when", "where",
}

// Code-like token markers that route a query to direct search.
func looksLikeCode(q string) bool {
	if strings.Contains(q, "`") || strings.Contains(q, "_") {
		return true
	}
	// Dotted call: identifier.identifier
	for i := 1; i+1 < len(q); i++ {
		if q[i] == '.' && isAlnum(q[i-1]) && isAlnum(q[i+1]) {
			return true
		}
	}
	// CamelCase: lower followed by upper inside one token.
	for i := 1; i < len(q); i++ {
		if isLower(q[i-1]) && isUpper(q[i]) {
			return true
		}
	}
	return false
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// classifyByRules is the deterministic fallback classifier.
func classifyByRules(q string) *Transformed {
	trimmed := strings.TrimSpace(q)
	lower := strings.ToLower(trimmed)

	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return &Transformed{
				Query:    q,
				Strategy: StrategyHyDE,
				Reason:   "rule: starts with a question word",
			}
		}
	}
	if utf8.RuneCountInString(trimmed) < 10 || len(strings.Fields(trimmed)) < 3 {
		return &Transformed{
			Query:    q,
			Strategy: StrategyExpansion,
			Reason:   "rule: short or vocabulary-sparse query",
		}
	}
	if looksLikeCode(trimmed) {
		return &Transformed{
			Query:    q,
			Strategy: StrategyDirect,
			Reason:   "rule: contains code-like tokens",
		}
	}
	return &Transformed{
		Query:    q,
		Strategy: StrategyExpansion,
		Reason:   "rule: default expansion",
	}
}
