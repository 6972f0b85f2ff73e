//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package postgres persists documents, chunks and embeddings in PostgreSQL
// with the pgvector extension, and runs cosine nearest-neighbor search over
// child chunk embeddings.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Hipc/doc-mcp/document"
)

// DefaultDimensions is the vector column width when none is configured.
const DefaultDimensions = 1536

// pgErrUniqueViolation is the SQLSTATE for unique constraint violations.
const pgErrUniqueViolation = "23505"

// SQL templates. The embedding dimension is bound at schema creation.
const (
	sqlCreateDocuments = `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			project_name TEXT NOT NULL,
			title TEXT,
			doc_type TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			created_at BIGINT
		)`

	sqlCreateStrategies = `
		CREATE TABLE IF NOT EXISTS chunk_strategies (
			id BIGSERIAL PRIMARY KEY,
			name TEXT,
			parent_chunk_size INT NOT NULL,
			child_chunk_size INT NOT NULL,
			overlap_percent INT NOT NULL,
			UNIQUE (parent_chunk_size, child_chunk_size, overlap_percent)
		)`

	sqlCreateParentChunks = `
		CREATE TABLE IF NOT EXISTS parent_chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			strategy_id BIGINT NOT NULL REFERENCES chunk_strategies(id),
			content TEXT NOT NULL,
			parent_index INT NOT NULL,
			start_pos INT NOT NULL,
			end_pos INT NOT NULL,
			summary TEXT
		)`

	sqlCreateChildChunks = `
		CREATE TABLE IF NOT EXISTS child_chunks (
			id TEXT PRIMARY KEY,
			parent_chunk_id TEXT NOT NULL REFERENCES parent_chunks(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			chunk_index INT NOT NULL,
			start_pos INT NOT NULL,
			end_pos INT NOT NULL
		)`

	sqlCreateEmbeddings = `
		CREATE TABLE IF NOT EXISTS chunk_embeddings (
			id TEXT PRIMARY KEY,
			child_chunk_id TEXT NOT NULL REFERENCES child_chunks(id) ON DELETE CASCADE,
			embedding vector(%d) NOT NULL,
			embedding_type TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at BIGINT,
			UNIQUE (child_chunk_id, embedding_type, model)
		)`

	sqlCreateVectorIndex = `
		CREATE INDEX IF NOT EXISTS chunk_embeddings_embedding_idx
		ON chunk_embeddings USING hnsw (embedding vector_cosine_ops)
		WITH (m = 32, ef_construction = 400)`

	sqlCreateProjectIndex = `
		CREATE INDEX IF NOT EXISTS documents_project_name_idx ON documents (project_name)`

	sqlCreateParentDocIndex = `
		CREATE INDEX IF NOT EXISTS parent_chunks_document_id_idx ON parent_chunks (document_id)`

	sqlCreateChildParentIndex = `
		CREATE INDEX IF NOT EXISTS child_chunks_parent_chunk_id_idx ON child_chunks (parent_chunk_id)`

	sqlInsertDocument = `
		INSERT INTO documents (id, project_name, title, doc_type, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	sqlSelectDocument = `
		SELECT id, project_name, title, doc_type, content, metadata, created_at
		FROM documents WHERE id = $1`

	sqlListDocuments = `
		SELECT id, project_name, title, doc_type, metadata, created_at
		FROM documents
		WHERE ($1 = '' OR project_name = $1)
		ORDER BY created_at DESC, id`

	sqlDeleteDocument = `DELETE FROM documents WHERE id = $1`

	sqlSelectStrategy = `
		SELECT id FROM chunk_strategies
		WHERE parent_chunk_size = $1 AND child_chunk_size = $2 AND overlap_percent = $3`

	sqlInsertStrategy = `
		INSERT INTO chunk_strategies (name, parent_chunk_size, child_chunk_size, overlap_percent)
		VALUES ($1, $2, $3, $4) RETURNING id`

	sqlInsertParentChunk = `
		INSERT INTO parent_chunks (id, document_id, strategy_id, content, parent_index, start_pos, end_pos, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	sqlInsertChildChunk = `
		INSERT INTO child_chunks (id, parent_chunk_id, content, chunk_index, start_pos, end_pos)
		VALUES ($1, $2, $3, $4, $5, $6)`

	sqlInsertEmbedding = `
		INSERT INTO chunk_embeddings (id, child_chunk_id, embedding, embedding_type, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	sqlSearchChildren = `
		SELECT c.id, c.content, c.chunk_index, c.start_pos, c.end_pos,
			p.id, p.content, p.summary,
			d.id, d.title, d.doc_type, d.project_name,
			1 - (e.embedding <=> $1) AS similarity
		FROM chunk_embeddings e
		JOIN child_chunks c ON c.id = e.child_chunk_id
		JOIN parent_chunks p ON p.id = c.parent_chunk_id
		JOIN documents d ON d.id = p.document_id
		WHERE e.embedding_type = $2
			AND ($3 = '' OR d.project_name = $3)
			AND 1 - (e.embedding <=> $1) >= $4
		ORDER BY e.embedding <=> $1
		LIMIT $5`
)

// Store persists the retrieval corpus in PostgreSQL.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
}

// Option represents a functional option for configuring the Store.
type Option func(*Store)

// WithDimensions sets the width of the vector column. It must match the
// embedder's output dimension.
func WithDimensions(d int) Option {
	return func(s *Store) {
		s.dimensions = d
	}
}

// New connects to PostgreSQL with the given DSN and creates the schema.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{dimensions: DefaultDimensions}
	for _, opt := range opts {
		opt(s)
	}
	if dsn == "" {
		return nil, errors.New("postgres: dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}
	s.pool = pool

	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		sqlCreateDocuments,
		sqlCreateStrategies,
		sqlCreateParentChunks,
		sqlCreateChildChunks,
		fmt.Sprintf(sqlCreateEmbeddings, s.dimensions),
		sqlCreateVectorIndex,
		sqlCreateProjectIndex,
		sqlCreateParentDocIndex,
		sqlCreateChildParentIndex,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init schema: %w", err)
		}
	}
	return nil
}

// InsertDocument stores a document. A missing ID or creation time is
// assigned in place.
func (s *Store) InsertDocument(ctx context.Context, doc *document.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	metadataJSON, err := mapToJSON(doc.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: encode document metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, sqlInsertDocument,
		doc.ID, doc.ProjectName, doc.Title, string(doc.Type), doc.Content,
		metadataJSON, doc.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("postgres: insert document: %w", err)
	}
	return nil
}

// GetDocument fetches one document by ID, including its content.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	var (
		doc          document.Document
		docType      string
		metadataJSON []byte
		createdAt    int64
	)
	err := s.pool.QueryRow(ctx, sqlSelectDocument, id).Scan(
		&doc.ID, &doc.ProjectName, &doc.Title, &docType, &doc.Content,
		&metadataJSON, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get document: %w", err)
	}
	doc.Type = document.Type(docType)
	doc.CreatedAt = time.Unix(createdAt, 0)
	if doc.Metadata, err = jsonToMap(metadataJSON); err != nil {
		return nil, fmt.Errorf("postgres: decode document metadata: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns documents, newest first, optionally filtered by
// project. Contents are omitted from listings.
func (s *Store) ListDocuments(ctx context.Context, projectName string) ([]*document.Document, error) {
	rows, err := s.pool.Query(ctx, sqlListDocuments, projectName)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		var (
			doc          document.Document
			docType      string
			metadataJSON []byte
			createdAt    int64
		)
		if err := rows.Scan(&doc.ID, &doc.ProjectName, &doc.Title, &docType,
			&metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("postgres: scan document row: %w", err)
		}
		doc.Type = document.Type(docType)
		doc.CreatedAt = time.Unix(createdAt, 0)
		if doc.Metadata, err = jsonToMap(metadataJSON); err != nil {
			return nil, fmt.Errorf("postgres: decode document metadata: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; chunks and embeddings cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, sqlDeleteDocument, id)
	if err != nil {
		return fmt.Errorf("postgres: delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: document %s: %w", id, ErrNotFound)
	}
	return nil
}

// EnsureStrategy finds or creates the strategy row for the given size triple
// and returns its ID. Concurrent ingests racing on the same triple resolve
// through the unique constraint.
func (s *Store) EnsureStrategy(ctx context.Context, cs *document.ChunkStrategy) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, sqlSelectStrategy,
		cs.ParentChunkSize, cs.ChildChunkSize, cs.OverlapPercent).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("postgres: select strategy: %w", err)
	}

	err = s.pool.QueryRow(ctx, sqlInsertStrategy,
		cs.Name, cs.ParentChunkSize, cs.ChildChunkSize, cs.OverlapPercent).Scan(&id)
	if err == nil {
		return id, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		// Lost the race: another ingest created the row first.
		if err := s.pool.QueryRow(ctx, sqlSelectStrategy,
			cs.ParentChunkSize, cs.ChildChunkSize, cs.OverlapPercent).Scan(&id); err != nil {
			return 0, fmt.Errorf("postgres: reselect strategy: %w", err)
		}
		return id, nil
	}
	return 0, fmt.Errorf("postgres: insert strategy: %w", err)
}

// ChildRecord couples a child chunk with its embeddings for persistence.
type ChildRecord struct {
	Chunk      document.ChildChunk
	Embeddings []document.ChunkEmbedding
}

// ParentRecord couples a parent chunk with its children for persistence.
type ParentRecord struct {
	Chunk    document.ParentChunk
	Children []ChildRecord
}

// SaveChunks persists one strategy's chunk tree in a single transaction.
// Missing chunk and embedding IDs are assigned in place so callers can refer
// to them afterwards.
func (s *Store) SaveChunks(ctx context.Context, parents []ParentRecord) (err error) {
	for pi := range parents {
		for ci := range parents[pi].Children {
			for ei := range parents[pi].Children[ci].Embeddings {
				emb := &parents[pi].Children[ci].Embeddings[ei]
				if len(emb.Embedding) != s.dimensions {
					return fmt.Errorf("postgres: expected %d dimensions, got %d: %w",
						s.dimensions, len(emb.Embedding), ErrDimensionMismatch)
				}
			}
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now().Unix()
	for pi := range parents {
		parent := &parents[pi].Chunk
		if parent.ID == "" {
			parent.ID = uuid.NewString()
		}
		if _, err = tx.Exec(ctx, sqlInsertParentChunk,
			parent.ID, parent.DocumentID, parent.StrategyID, parent.Content,
			parent.ParentIndex, parent.StartPos, parent.EndPos, parent.Summary); err != nil {
			return fmt.Errorf("postgres: insert parent chunk: %w", err)
		}

		for ci := range parents[pi].Children {
			child := &parents[pi].Children[ci].Chunk
			if child.ID == "" {
				child.ID = uuid.NewString()
			}
			child.ParentChunkID = parent.ID
			if _, err = tx.Exec(ctx, sqlInsertChildChunk,
				child.ID, child.ParentChunkID, child.Content,
				child.ChunkIndex, child.StartPos, child.EndPos); err != nil {
				return fmt.Errorf("postgres: insert child chunk: %w", err)
			}

			for ei := range parents[pi].Children[ci].Embeddings {
				emb := &parents[pi].Children[ci].Embeddings[ei]
				if emb.ID == "" {
					emb.ID = uuid.NewString()
				}
				emb.ChildChunkID = child.ID
				vec := pgvector.NewVector(toFloat32(emb.Embedding))
				if _, err = tx.Exec(ctx, sqlInsertEmbedding,
					emb.ID, emb.ChildChunkID, vec, emb.EmbeddingType, emb.Model, now); err != nil {
					return fmt.Errorf("postgres: insert embedding: %w", err)
				}
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit chunk tree: %w", err)
	}
	return nil
}

// SearchQuery parameterizes a nearest-neighbor search over child chunks.
type SearchQuery struct {
	// Embedding is the query vector; its length must match the store's
	// configured dimensions.
	Embedding []float64
	// ProjectName filters results to one project when non-empty.
	ProjectName string
	// EmbeddingType selects which embedding variant to search. Defaults to
	// the contextual content embedding.
	EmbeddingType string
	// Threshold drops results whose cosine similarity falls below it.
	Threshold float64
	// Limit caps the number of results.
	Limit int
}

// SearchResult is one child chunk hit with its parent and document context.
type SearchResult struct {
	ChildChunkID  string
	ChildContent  string
	ChunkIndex    int
	StartPos      int
	EndPos        int
	ParentChunkID string
	ParentContent string
	Summary       string
	DocumentID    string
	DocumentTitle string
	DocumentType  document.Type
	ProjectName   string
	Similarity    float64
}

// SearchChildren returns the child chunks nearest to the query embedding by
// cosine similarity, joined with their parent and document rows.
func (s *Store) SearchChildren(ctx context.Context, q SearchQuery) ([]*SearchResult, error) {
	if len(q.Embedding) != s.dimensions {
		return nil, fmt.Errorf("postgres: expected %d dimensions, got %d: %w",
			s.dimensions, len(q.Embedding), ErrDimensionMismatch)
	}
	embeddingType := q.EmbeddingType
	if embeddingType == "" {
		embeddingType = document.EmbeddingTypeContent
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(toFloat32(q.Embedding))
	rows, err := s.pool.Query(ctx, sqlSearchChildren,
		vec, embeddingType, q.ProjectName, q.Threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: search children: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		var (
			r       SearchResult
			docType string
		)
		if err := rows.Scan(&r.ChildChunkID, &r.ChildContent, &r.ChunkIndex,
			&r.StartPos, &r.EndPos,
			&r.ParentChunkID, &r.ParentContent, &r.Summary,
			&r.DocumentID, &r.DocumentTitle, &docType, &r.ProjectName,
			&r.Similarity); err != nil {
			return nil, fmt.Errorf("postgres: scan search row: %w", err)
		}
		r.DocumentType = document.Type(docType)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search children: %w", err)
	}
	return results, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func mapToJSON(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func jsonToMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
