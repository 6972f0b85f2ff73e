//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package server exposes the ingestion and retrieval pipelines over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Hipc/doc-mcp/chunking"
	"github.com/Hipc/doc-mcp/document"
	"github.com/Hipc/doc-mcp/embedder"
	"github.com/Hipc/doc-mcp/ingestion"
	"github.com/Hipc/doc-mcp/log"
	"github.com/Hipc/doc-mcp/query"
	"github.com/Hipc/doc-mcp/retriever"
	"github.com/Hipc/doc-mcp/storage/postgres"
	"github.com/Hipc/doc-mcp/summarizer"
)

// Ingestor runs the write path.
type Ingestor interface {
	Ingest(ctx context.Context, req ingestion.Request) (*ingestion.Result, error)
}

// Searcher runs the read path.
type Searcher interface {
	Retrieve(ctx context.Context, req retriever.Request) (*retriever.Result, error)
}

// DocumentStore serves document lookups and deletion.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*document.Document, error)
	ListDocuments(ctx context.Context, projectName string) ([]*document.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Server wires the HTTP API.
type Server struct {
	router    *mux.Router
	ingestor  Ingestor
	retriever Searcher
	store     DocumentStore
}

// Option configures the Server instance.
type Option func(*Server)

// New creates the HTTP server over the given pipeline components.
func New(ing Ingestor, ret Searcher, store DocumentStore, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		ingestor:  ing,
		retriever: ret,
		store:     store,
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/api/documents", s.handleIngest).Methods(http.MethodPost)
	s.router.HandleFunc("/api/documents", s.handleListDocuments).Methods(http.MethodGet)
	s.router.HandleFunc("/api/documents/{id}", s.handleGetDocument).Methods(http.MethodGet)
	s.router.HandleFunc("/api/documents/{id}", s.handleDeleteDocument).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodPost)
}

// ---- Request/response shapes -------------------------------------------

type ingestRequest struct {
	Content     string            `json:"content"`
	DocType     string            `json:"type"`
	ProjectName string            `json:"project_name"`
	Title       string            `json:"title"`
	Metadata    map[string]any    `json:"metadata"`
	Strategies  []strategyRequest `json:"strategies"`
}

type strategyRequest struct {
	Name            string `json:"name"`
	ParentChunkSize int    `json:"parent_chunk_size"`
	ChildChunkSize  int    `json:"child_chunk_size"`
	OverlapPercent  int    `json:"overlap_percent"`
}

type searchRequest struct {
	Query       string `json:"query"`
	ProjectName string `json:"project_name"`
	TopK        int    `json:"top_k"`
	// Pointer fields tell an omitted knob apart from an explicit zero/false:
	// omitted means threshold 0.3, smart query classification and rerank on.
	Threshold         *float64 `json:"similarity_threshold"`
	UseSmartQuery     *bool    `json:"use_smart_query"`
	UseQueryExpansion *bool    `json:"use_query_expansion"`
	UseHyDE           *bool    `json:"use_hyde"`
	UseRerank         *bool    `json:"use_rerank"`
	// Mode is a shorthand alias for the use_* booleans:
	// "smart", "direct", "expansion" or "hyde". Ignored when empty.
	Mode string `json:"mode"`
}

type searchItem struct {
	ChildChunkID  string  `json:"child_chunk_id"`
	Content       string  `json:"child_chunk_content"`
	ParentChunkID string  `json:"parent_chunk_id"`
	ParentContent string  `json:"parent_chunk_content"`
	Summary       string  `json:"parent_chunk_summary,omitempty"`
	StartPos      int     `json:"start_pos"`
	EndPos        int     `json:"end_pos"`
	DocumentID    string  `json:"document_id"`
	Title         string  `json:"document_title,omitempty"`
	DocType       string  `json:"document_type"`
	ProjectName   string  `json:"project_name"`
	Similarity    float64 `json:"similarity"`
	Score         float64 `json:"score"`
}

type searchResponse struct {
	Query          string       `json:"query"`
	ProjectName    string       `json:"project_name,omitempty"`
	TotalResults   int          `json:"total_results"`
	Results        []searchItem `json:"results"`
	EffectiveQuery string       `json:"effective_query"`
	QueryStrategy  string       `json:"query_strategy"`
	StrategyReason string       `json:"strategy_reason,omitempty"`
}

type documentResponse struct {
	ID          string         `json:"id"`
	ProjectName string         `json:"project_name"`
	Title       string         `json:"title,omitempty"`
	DocType     string         `json:"type"`
	Content     string         `json:"content,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ---- Handlers -----------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}

	ingReq := ingestion.Request{
		Content:     req.Content,
		Type:        document.NormalizeType(req.DocType),
		ProjectName: req.ProjectName,
		Title:       req.Title,
		Metadata:    req.Metadata,
	}
	for _, sr := range req.Strategies {
		ingReq.Strategies = append(ingReq.Strategies, chunking.Config{
			ParentChunkSize: sr.ParentChunkSize,
			ChildChunkSize:  sr.ChildChunkSize,
			OverlapPercent:  sr.OverlapPercent,
			Name:            sr.Name,
		})
	}

	result, err := s.ingestor.Ingest(r.Context(), ingReq)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSuccess(w, http.StatusCreated, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return
	}
	mode, ok := resolveMode(req)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "ValidationError", "unknown mode: "+req.Mode)
		return
	}

	var threshold float64
	if req.Threshold != nil {
		threshold = *req.Threshold
		if threshold == 0 {
			// Explicit zero disables the similarity cutoff.
			threshold = -1
		}
	}
	rerank := true
	if req.UseRerank != nil {
		rerank = *req.UseRerank
	}

	result, err := s.retriever.Retrieve(r.Context(), retriever.Request{
		Query:       req.Query,
		ProjectName: req.ProjectName,
		TopK:        req.TopK,
		Threshold:   threshold,
		Mode:        mode,
		Rerank:      rerank,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	resp := searchResponse{
		Query:          req.Query,
		ProjectName:    req.ProjectName,
		TotalResults:   len(result.Items),
		Results:        make([]searchItem, 0, len(result.Items)),
		EffectiveQuery: result.EffectiveQuery,
		QueryStrategy:  string(result.Strategy),
		StrategyReason: result.Reason,
	}
	for _, item := range result.Items {
		resp.Results = append(resp.Results, searchItem{
			ChildChunkID:  item.ChildChunkID,
			Content:       item.ChildContent,
			ParentChunkID: item.ParentChunkID,
			ParentContent: item.ParentContent,
			Summary:       item.Summary,
			StartPos:      item.StartPos,
			EndPos:        item.EndPos,
			DocumentID:    item.DocumentID,
			Title:         item.DocumentTitle,
			DocType:       string(item.DocumentType),
			ProjectName:   item.ProjectName,
			Similarity:    item.Similarity,
			Score:         item.Score,
		})
	}
	s.writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context(), r.URL.Query().Get("project_name"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	s.writeSuccess(w, http.StatusOK, out)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}

// ---- Helpers ------------------------------------------------------------

// resolveMode maps the request's transformation knobs onto a query.Mode. The
// mode alias wins when set; otherwise the use_* booleans apply, with smart
// classification as the default.
func resolveMode(req searchRequest) (query.Mode, bool) {
	if req.Mode != "" {
		switch req.Mode {
		case "smart":
			return query.Mode{Smart: true}, true
		case "direct":
			return query.Mode{}, true
		case "expansion":
			return query.Mode{ForceExpansion: true}, true
		case "hyde":
			return query.Mode{ForceHyDE: true}, true
		default:
			return query.Mode{}, false
		}
	}
	switch {
	case req.UseHyDE != nil && *req.UseHyDE:
		return query.Mode{ForceHyDE: true}, true
	case req.UseQueryExpansion != nil && *req.UseQueryExpansion:
		return query.Mode{ForceExpansion: true}, true
	case req.UseSmartQuery != nil && !*req.UseSmartQuery:
		return query.Mode{}, true
	default:
		return query.Mode{Smart: true}, true
	}
}

func toDocumentResponse(doc *document.Document) documentResponse {
	return documentResponse{
		ID:          doc.ID,
		ProjectName: doc.ProjectName,
		Title:       doc.Title,
		DocType:     string(doc.Type),
		Content:     doc.Content,
		Metadata:    doc.Metadata,
		CreatedAt:   doc.CreatedAt,
	}
}

// classify maps pipeline errors onto the API error kinds.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ingestion.ErrMissingProject),
		errors.Is(err, retriever.ErrEmptyQuery),
		errors.Is(err, chunking.ErrInvalidChunkSize),
		errors.Is(err, chunking.ErrChildLargerThanParent),
		errors.Is(err, chunking.ErrInvalidOverlap),
		errors.Is(err, chunking.ErrOverlapTooLarge):
		return http.StatusBadRequest, "ValidationError"
	case errors.Is(err, postgres.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, summarizer.ErrSummaryFailure),
		errors.Is(err, embedder.ErrEmbeddingFailure):
		return http.StatusBadGateway, "RemoteServiceError"
	case errors.Is(err, embedder.ErrDimensionMismatch),
		errors.Is(err, postgres.ErrDimensionMismatch):
		return http.StatusInternalServerError, "DimensionMismatch"
	case postgres.IsConstraintViolation(err):
		return http.StatusBadRequest, "PersistenceError"
	case postgres.IsStorageError(err):
		return http.StatusInternalServerError, "PersistenceError"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("server: %s: %v", kind, err)
	} else {
		log.Warnf("server: %s: %v", kind, err)
	}
	s.writeError(w, status, kind, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload := map[string]any{
		"success": false,
		"error":   map[string]string{"kind": kind, "message": message},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("server: encode error response: %v", err)
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload := map[string]any{"success": true, "data": data}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("server: encode response: %v", err)
	}
}
