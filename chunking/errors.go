//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package chunking

import "errors"

var (
	// ErrInvalidChunkSize indicates that a chunk size is invalid.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrChildLargerThanParent indicates that the child chunk size exceeds the parent chunk size.
	ErrChildLargerThanParent = errors.New("child chunk size must not exceed parent chunk size")

	// ErrInvalidOverlap indicates that the overlap percent is negative.
	ErrInvalidOverlap = errors.New("overlap percent must be non-negative")

	// ErrOverlapTooLarge indicates that the overlap percent is 100 or more.
	ErrOverlapTooLarge = errors.New("overlap percent must be less than 100")
)
