//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package document defines the core entities of the retrieval service:
// documents, chunk strategies, parent/child chunks, and chunk embeddings.
package document

import (
	"strings"
	"time"
)

// Type classifies a document and selects the summarization prompt.
type Type string

// Known document types.
const (
	TypeAPIDoc       Type = "API_DOC"
	TypeTechDoc      Type = "TECH_DOC"
	TypeCodeLogicDoc Type = "CODE_LOGIC_DOC"
	TypeGeneralDoc   Type = "GENERAL_DOC"
)

// typeAliases maps normalized ingress values to document types.
var typeAliases = map[string]Type{
	"API":            TypeAPIDoc,
	"API_DOC":        TypeAPIDoc,
	"TECH":           TypeTechDoc,
	"TECH_DOC":       TypeTechDoc,
	"CODE":           TypeCodeLogicDoc,
	"CODE_LOGIC":     TypeCodeLogicDoc,
	"CODE_LOGIC_DOC": TypeCodeLogicDoc,
	"GENERAL":        TypeGeneralDoc,
	"GENERAL_DOC":    TypeGeneralDoc,
}

// NormalizeType maps a free-form ingress type string to a known document type.
// Values are upper-cased and dashes become underscores; unknown values default
// to TypeGeneralDoc.
func NormalizeType(raw string) Type {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	if t, ok := typeAliases[key]; ok {
		return t
	}
	return TypeGeneralDoc
}

// Document is an ingested text document. Content is immutable after ingest.
type Document struct {
	ID          string
	Content     string
	Type        Type
	ProjectName string
	Title       string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// ChunkStrategy describes one chunking granularity. The triple
// (ParentChunkSize, ChildChunkSize, OverlapPercent) is globally unique.
type ChunkStrategy struct {
	ID              int64
	ParentChunkSize int
	ChildChunkSize  int
	OverlapPercent  int
	Name            string
}

// ParentChunk is a large span of a document produced by one strategy.
// StartPos/EndPos are half-open character offsets into the source document.
type ParentChunk struct {
	ID          string
	DocumentID  string
	StrategyID  int64
	Content     string
	ParentIndex int
	StartPos    int
	EndPos      int
	Summary     string
}

// ChildChunk is a small retrieval unit extracted from a parent chunk.
// Offsets are relative to the source document, not the parent.
type ChildChunk struct {
	ID            string
	ParentChunkID string
	Content       string
	ChunkIndex    int
	StartPos      int
	EndPos        int
}

// Embedding type discriminators for ChunkEmbedding.
const (
	EmbeddingTypeContent = "content"
	EmbeddingTypeSummary = "summary"
)

// ChunkEmbedding is a dense vector for a child chunk. Exactly one embedding
// exists per (ChildChunkID, EmbeddingType, Model).
type ChunkEmbedding struct {
	ID            string
	ChildChunkID  string
	Embedding     []float64
	EmbeddingType string
	Model         string
	CreatedAt     time.Time
}
