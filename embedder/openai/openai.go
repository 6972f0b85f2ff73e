//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package openai provides an OpenAI-compatible embedder implementation.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sync/errgroup"

	"github.com/Hipc/doc-mcp/embedder"
)

// Verify that Embedder implements the embedder.Embedder interface.
var _ embedder.Embedder = (*Embedder)(nil)

const (
	// DefaultModel is the default embedding model.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimensions is the default embedding dimension for text-embedding-3-small.
	DefaultDimensions = 1536
	// DefaultBatchSize is the maximum number of inputs per remote call.
	DefaultBatchSize = 100
	// DefaultEncodingFormat is the default encoding format for embeddings.
	DefaultEncodingFormat = "float"

	// maxBatchConcurrency bounds how many batch requests run at once.
	maxBatchConcurrency = 5

	// Model prefix for text-embedding-3 series.
	textEmbedding3Prefix = "text-embedding-3"
)

// Embedder implements the embedder.Embedder interface for OpenAI-compatible APIs.
type Embedder struct {
	client         openai.Client
	model          string
	dimensions     int
	batchSize      int
	encodingFormat string
	apiKey         string
	baseURL        string
	requestOptions []option.RequestOption
}

// Option represents a functional option for configuring the Embedder.
type Option func(*Embedder)

// WithModel sets the embedding model to use.
func WithModel(model string) Option {
	return func(e *Embedder) {
		e.model = model
	}
}

// WithDimensions sets the number of dimensions for the embedding.
// Only works with text-embedding-3 and later models.
func WithDimensions(dimensions int) Option {
	return func(e *Embedder) {
		e.dimensions = dimensions
	}
}

// WithBatchSize sets the maximum number of inputs per remote call.
func WithBatchSize(size int) Option {
	return func(e *Embedder) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) Option {
	return func(e *Embedder) {
		e.apiKey = apiKey
	}
}

// WithBaseURL sets the base URL, for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) Option {
	return func(e *Embedder) {
		e.baseURL = baseURL
	}
}

// WithRequestOptions sets additional options for the client requests.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(e *Embedder) {
		e.requestOptions = append(e.requestOptions, opts...)
	}
}

// New creates a new embedder with the given options.
func New(opts ...Option) *Embedder {
	e := &Embedder{
		model:          DefaultModel,
		dimensions:     DefaultDimensions,
		batchSize:      DefaultBatchSize,
		encodingFormat: DefaultEncodingFormat,
	}
	for _, opt := range opts {
		opt(e)
	}

	var clientOpts []option.RequestOption
	if e.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(e.apiKey))
	}
	if e.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(e.baseURL))
	}
	e.client = openai.NewClient(clientOpts...)
	return e
}

// Embed implements the embedder.Embedder interface for a single input.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return []float64{}, nil
	}

	request := e.newRequest(openai.EmbeddingNewParamsInputUnion{
		OfString: openai.String(text),
	})

	requestOpts := make([]option.RequestOption, len(e.requestOptions))
	copy(requestOpts, e.requestOptions)

	response, err := e.client.Embeddings.New(ctx, request, requestOpts...)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w: %w", embedder.ErrEmbeddingFailure, err)
	}
	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder: %w: empty embedding response", embedder.ErrEmbeddingFailure)
	}
	return response.Data[0].Embedding, nil
}

// EmbedBatch implements the embedder.Embedder interface. Inputs are filtered
// for blanks, chunked into batches, and reassembled in the caller's order;
// the remote endpoint may return items out of order, so items are placed by
// their returned index.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	results := make([][]float64, len(texts))

	// Filter blank inputs, keeping the original index of each survivor.
	var inputs []string
	var indices []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			results[i] = []float64{}
			continue
		}
		inputs = append(inputs, t)
		indices = append(indices, i)
	}
	if len(inputs) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)

	for batchStart := 0; batchStart < len(inputs); batchStart += e.batchSize {
		start := batchStart
		end := min(start+e.batchSize, len(inputs))
		g.Go(func() error {
			batch := inputs[start:end]
			request := e.newRequest(openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: batch,
			})

			requestOpts := make([]option.RequestOption, len(e.requestOptions))
			copy(requestOpts, e.requestOptions)

			response, err := e.client.Embeddings.New(ctx, request, requestOpts...)
			if err != nil {
				return fmt.Errorf("embedder: %w: %w", embedder.ErrEmbeddingFailure, err)
			}
			if len(response.Data) != len(batch) {
				return fmt.Errorf("embedder: %w: expected %d embeddings, got %d",
					embedder.ErrEmbeddingFailure, len(batch), len(response.Data))
			}
			for _, item := range response.Data {
				if item.Index < 0 || int(item.Index) >= len(batch) {
					return fmt.Errorf("embedder: %w: embedding index %d out of range",
						embedder.ErrEmbeddingFailure, item.Index)
				}
				results[indices[start+int(item.Index)]] = item.Embedding
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// EmbedContextual implements the embedder.Embedder interface.
func (e *Embedder) EmbedContextual(ctx context.Context, content string, ec embedder.Context) ([]float64, error) {
	if strings.TrimSpace(content) == "" {
		return []float64{}, nil
	}
	return e.Embed(ctx, embedder.ComposeContextual(content, ec))
}

// Dimensions implements the embedder.Embedder interface.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Model implements the embedder.Embedder interface.
func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) newRequest(input openai.EmbeddingNewParamsInputUnion) openai.EmbeddingNewParams {
	request := openai.EmbeddingNewParams{
		Input:          input,
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormat(e.encodingFormat),
	}
	// Requesting dimensions is only supported on text-embedding-3 models.
	if strings.HasPrefix(e.model, textEmbedding3Prefix) {
		request.Dimensions = openai.Int(int64(e.dimensions))
	}
	return request
}
