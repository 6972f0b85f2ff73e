//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package embedder

import "errors"

var (
	// ErrEmbeddingFailure indicates that the remote embedding endpoint failed.
	ErrEmbeddingFailure = errors.New("embedding request failed")

	// ErrDimensionMismatch indicates cosine over vectors of different length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
