//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package chunking provides the recursive hierarchical text splitter that
// turns a document into parent spans and child spans with position tracking.
package chunking

// Default chunking parameters.
const (
	DefaultParentChunkSize = 2000
	DefaultChildChunkSize  = 800
	DefaultOverlapPercent  = 25
)

// defaultSeparators lists split boundaries from most to least semantic.
// The trailing empty string enables the character-level fallback.
var defaultSeparators = []string{
	"\n\n", "\n",
	"。", "！", "？",
	".", "!", "?",
	";", "；",
	",", "，",
	" ", "",
}

// Config holds the parameters of one chunking strategy.
type Config struct {
	// ParentChunkSize is the target maximum length of a parent span.
	ParentChunkSize int
	// ChildChunkSize is the target maximum length of a child span.
	ChildChunkSize int
	// OverlapPercent is the overlap between adjacent spans, 0-99.
	OverlapPercent int
	// Name optionally labels the strategy.
	Name string
}

// DefaultConfig returns the default chunking strategy.
func DefaultConfig() Config {
	return Config{
		ParentChunkSize: DefaultParentChunkSize,
		ChildChunkSize:  DefaultChildChunkSize,
		OverlapPercent:  DefaultOverlapPercent,
	}
}

// Validate checks the strategy parameters.
func (c Config) Validate() error {
	if c.ParentChunkSize <= 0 || c.ChildChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.ChildChunkSize > c.ParentChunkSize {
		return ErrChildLargerThanParent
	}
	if c.OverlapPercent < 0 {
		return ErrInvalidOverlap
	}
	if c.OverlapPercent >= 100 {
		return ErrOverlapTooLarge
	}
	return nil
}

// ParentOverlap returns the parent overlap in characters.
func (c Config) ParentOverlap() int {
	return c.ParentChunkSize * c.OverlapPercent / 100
}

// ChildOverlap returns the child overlap in characters.
func (c Config) ChildOverlap() int {
	return c.ChildChunkSize * c.OverlapPercent / 100
}

// Child is a small retrieval span. StartPos/EndPos are half-open offsets into
// the source document, not the parent.
type Child struct {
	Content  string
	StartPos int
	EndPos   int
}

// Parent is a context span carrying its ordered child spans. StartPos/EndPos
// are half-open offsets into the source document.
type Parent struct {
	Content  string
	StartPos int
	EndPos   int
	Children []Child
}
