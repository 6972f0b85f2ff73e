//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package ingestion orchestrates the write path: persist the document, chunk
// it under each configured strategy, summarize parent chunks, embed child
// chunks with parent context and store the resulting tree.
package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hipc/doc-mcp/chunking"
	"github.com/Hipc/doc-mcp/document"
	"github.com/Hipc/doc-mcp/embedder"
	"github.com/Hipc/doc-mcp/log"
	"github.com/Hipc/doc-mcp/storage/postgres"
	"github.com/Hipc/doc-mcp/summarizer"
	"github.com/Hipc/doc-mcp/telemetry"
)

// Store is the persistence surface the ingestor needs.
type Store interface {
	InsertDocument(ctx context.Context, doc *document.Document) error
	EnsureStrategy(ctx context.Context, cs *document.ChunkStrategy) (int64, error)
	SaveChunks(ctx context.Context, parents []postgres.ParentRecord) error
}

// Summarizer produces parent chunk summaries in batch.
type Summarizer interface {
	SummarizeBatch(ctx context.Context, inputs []summarizer.Input) ([]string, error)
}

// Progress reports pipeline advancement. stage is one of "chunk",
// "summarize", "embed", "persist"; done and total count strategies processed
// so far.
type Progress func(stage string, done, total int)

// Request describes one document to ingest.
type Request struct {
	Content     string
	Type        document.Type
	ProjectName string
	Title       string
	Metadata    map[string]any
	// Strategies are the chunking granularities to index under. Empty means
	// the default strategy.
	Strategies []chunking.Config
}

// StrategyResult echoes one applied strategy and counts what it produced.
type StrategyResult struct {
	StrategyID      int64  `json:"strategy_id"`
	Name            string `json:"name,omitempty"`
	ParentChunkSize int    `json:"parent_chunk_size"`
	ChildChunkSize  int    `json:"child_chunk_size"`
	OverlapPercent  int    `json:"overlap_percent"`
	ParentChunks    int    `json:"parent_chunks"`
	ChildChunks     int    `json:"child_chunks"`
	Embeddings      int    `json:"embeddings"`
}

// Result summarizes a completed ingest.
type Result struct {
	DocumentID   string           `json:"document_id"`
	Title        string           `json:"title,omitempty"`
	Type         document.Type    `json:"type"`
	ProjectName  string           `json:"project_name"`
	Strategies   []StrategyResult `json:"strategies"`
	ParentChunks int              `json:"parent_chunks_created"`
	ChildChunks  int              `json:"child_chunks_created"`
	Embeddings   int              `json:"embeddings_created"`
}

// Ingestor runs the ingestion pipeline.
type Ingestor struct {
	store      Store
	summarizer Summarizer
	embedder   embedder.Embedder
	progress   Progress
	defaults   []chunking.Config
}

// Option represents a functional option for configuring the Ingestor.
type Option func(*Ingestor)

// WithProgress registers a progress callback.
func WithProgress(p Progress) Option {
	return func(i *Ingestor) {
		i.progress = p
	}
}

// WithDefaultStrategies sets the strategies applied when a request names
// none. Without this option a single default strategy is used.
func WithDefaultStrategies(cfgs []chunking.Config) Option {
	return func(i *Ingestor) {
		i.defaults = cfgs
	}
}

// New creates an ingestor over the given store, summarizer and embedder.
func New(store Store, summ Summarizer, emb embedder.Embedder, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:      store,
		summarizer: summ,
		embedder:   emb,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest persists the document and indexes it under every requested
// strategy. Each strategy's chunk tree commits in its own transaction;
// earlier strategies stay committed when a later one fails.
func (i *Ingestor) Ingest(ctx context.Context, req Request) (*Result, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "ingest-document")
	defer span.End()

	if strings.TrimSpace(req.ProjectName) == "" {
		return nil, ErrMissingProject
	}

	strategies := req.Strategies
	if len(strategies) == 0 {
		strategies = i.defaults
	}
	if len(strategies) == 0 {
		strategies = []chunking.Config{chunking.DefaultConfig()}
	}
	for _, cfg := range strategies {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	doc := &document.Document{
		Content:     req.Content,
		Type:        req.Type,
		ProjectName: req.ProjectName,
		Title:       req.Title,
		Metadata:    req.Metadata,
	}
	if doc.Type == "" {
		doc.Type = document.TypeGeneralDoc
	}
	if err := i.store.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	span.SetAttributes(
		telemetry.String(telemetry.KeyDocumentID, doc.ID),
		telemetry.String(telemetry.KeyProjectName, doc.ProjectName),
	)

	result := &Result{
		DocumentID:  doc.ID,
		Title:       doc.Title,
		Type:        doc.Type,
		ProjectName: doc.ProjectName,
	}
	total := len(strategies)
	for n, cfg := range strategies {
		sr, err := i.ingestStrategy(ctx, doc, cfg, n+1, total)
		if err != nil {
			return nil, fmt.Errorf("ingestion: strategy %q (%d/%d/%d): %w",
				cfg.Name, cfg.ParentChunkSize, cfg.ChildChunkSize, cfg.OverlapPercent, err)
		}
		result.Strategies = append(result.Strategies, *sr)
		result.ParentChunks += sr.ParentChunks
		result.ChildChunks += sr.ChildChunks
		result.Embeddings += sr.Embeddings
	}

	log.Infof("ingestion: document %s indexed: %d parents, %d children, %d embeddings across %d strategies",
		doc.ID, result.ParentChunks, result.ChildChunks, result.Embeddings, total)
	return result, nil
}

// ingestStrategy chunks, summarizes, embeds and persists one strategy's view
// of the document, reporting progress at each phase boundary.
func (i *Ingestor) ingestStrategy(ctx context.Context, doc *document.Document, cfg chunking.Config, done, total int) (*StrategyResult, error) {
	splitter, err := chunking.New(cfg)
	if err != nil {
		return nil, err
	}
	parents, err := splitter.Split(doc.Content)
	if err != nil {
		return nil, err
	}
	i.report("chunk", done, total)

	strategyID, err := i.store.EnsureStrategy(ctx, &document.ChunkStrategy{
		ParentChunkSize: cfg.ParentChunkSize,
		ChildChunkSize:  cfg.ChildChunkSize,
		OverlapPercent:  cfg.OverlapPercent,
		Name:            cfg.Name,
	})
	if err != nil {
		return nil, err
	}
	sr := &StrategyResult{
		StrategyID:      strategyID,
		Name:            cfg.Name,
		ParentChunkSize: cfg.ParentChunkSize,
		ChildChunkSize:  cfg.ChildChunkSize,
		OverlapPercent:  cfg.OverlapPercent,
	}
	if len(parents) == 0 {
		return sr, nil
	}

	summaries, err := i.summarize(ctx, doc.Type, parents)
	if err != nil {
		return nil, err
	}
	i.report("summarize", done, total)

	embeddings, childCount, err := i.embedChildren(ctx, doc, parents, summaries)
	if err != nil {
		return nil, err
	}
	i.report("embed", done, total)

	records, embCount := assembleRecords(doc.ID, strategyID, parents, summaries, embeddings, i.embedder.Model())
	if err := i.store.SaveChunks(ctx, records); err != nil {
		return nil, err
	}
	i.report("persist", done, total)

	sr.ParentChunks = len(parents)
	sr.ChildChunks = childCount
	sr.Embeddings = embCount
	return sr, nil
}

func (i *Ingestor) summarize(ctx context.Context, docType document.Type, parents []chunking.Parent) ([]string, error) {
	inputs := make([]summarizer.Input, len(parents))
	for n, p := range parents {
		inputs[n] = summarizer.Input{Content: p.Content, Type: docType}
	}
	summaries, err := i.summarizer.SummarizeBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(summaries) != len(parents) {
		return nil, fmt.Errorf("ingestion: expected %d summaries, got %d", len(parents), len(summaries))
	}
	return summaries, nil
}

// embedChildren embeds every child chunk with its parent's summary as
// context, in document order. The returned slice is indexed the same way the
// children flatten: parent by parent, child by child.
func (i *Ingestor) embedChildren(ctx context.Context, doc *document.Document, parents []chunking.Parent, summaries []string) ([][]float64, int, error) {
	var texts []string
	for n, p := range parents {
		ec := embedder.Context{
			Title:   doc.Title,
			DocType: string(doc.Type),
			Summary: summaries[n],
		}
		for _, c := range p.Children {
			texts = append(texts, embedder.ComposeContextual(c.Content, ec))
		}
	}
	if len(texts) == 0 {
		return nil, 0, nil
	}

	embeddings, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, 0, err
	}
	if len(embeddings) != len(texts) {
		return nil, 0, fmt.Errorf("ingestion: expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	return embeddings, len(texts), nil
}

// assembleRecords builds the per-parent write set. Blank children carry a
// zero-length placeholder vector from the embedder; those rows are stored
// without an embedding.
func assembleRecords(docID string, strategyID int64, parents []chunking.Parent, summaries []string, embeddings [][]float64, model string) ([]postgres.ParentRecord, int) {
	records := make([]postgres.ParentRecord, len(parents))
	flat := 0
	embCount := 0
	for n, p := range parents {
		record := postgres.ParentRecord{
			Chunk: document.ParentChunk{
				DocumentID:  docID,
				StrategyID:  strategyID,
				Content:     p.Content,
				ParentIndex: n,
				StartPos:    p.StartPos,
				EndPos:      p.EndPos,
				Summary:     summaries[n],
			},
		}
		for ci, c := range p.Children {
			child := postgres.ChildRecord{
				Chunk: document.ChildChunk{
					Content:    c.Content,
					ChunkIndex: ci,
					StartPos:   c.StartPos,
					EndPos:     c.EndPos,
				},
			}
			if len(embeddings[flat]) > 0 {
				child.Embeddings = []document.ChunkEmbedding{{
					Embedding:     embeddings[flat],
					EmbeddingType: document.EmbeddingTypeContent,
					Model:         model,
				}}
				embCount++
			}
			record.Children = append(record.Children, child)
			flat++
		}
		records[n] = record
	}
	return records, embCount
}

func (i *Ingestor) report(stage string, done, total int) {
	if i.progress != nil {
		i.progress(stage, done, total)
	}
}
