//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		sim, err := Cosine([]float64{1, 2, 3}, []float64{1, 2, 3})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		sim, err := Cosine([]float64{1, 0}, []float64{0, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, sim, 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		sim, err := Cosine([]float64{1, 1}, []float64{-1, -1})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, sim, 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float64{0.3, -0.2, 0.9}
		b := []float64{-0.5, 0.4, 0.1}
		ab, err := Cosine(a, b)
		require.NoError(t, err)
		ba, err := Cosine(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	})

	t.Run("unit vectors equal dot product", func(t *testing.T) {
		a := []float64{1, 0, 0}
		b := []float64{0.6, 0.8, 0}
		sim, err := Cosine(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 0.6, sim, 1e-9)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Cosine([]float64{1, 2}, []float64{1, 2, 3})
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("zero vector", func(t *testing.T) {
		sim, err := Cosine([]float64{0, 0}, []float64{1, 1})
		require.NoError(t, err)
		assert.Equal(t, 0.0, sim)
	})
}

func TestComposeContextual(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		got := ComposeContextual("body", Context{Title: "T", DocType: "API_DOC", Summary: "S"})
		assert.Equal(t, "[title] T\n[type] API_DOC\n[summary] S\n[content] body", got)
	})

	t.Run("absent fields dropped", func(t *testing.T) {
		got := ComposeContextual("body", Context{Summary: "S"})
		assert.Equal(t, "[summary] S\n[content] body", got)
	})

	t.Run("content only", func(t *testing.T) {
		got := ComposeContextual("body", Context{})
		assert.Equal(t, "[content] body", got)
	})
}
