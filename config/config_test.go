//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hipc/doc-mcp/chunking"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docmcp")
	t.Setenv("CHAT_API_KEY", "key")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultChatModel, cfg.ChatModel)
	assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingModel)
	assert.Equal(t, DefaultDimensions, cfg.EmbeddingDimensions)
	assert.Equal(t, DefaultServerPort, cfg.ServerPort)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	// Embedding credentials fall back to the chat ones.
	assert.Equal(t, "key", cfg.EmbeddingAPIKey)
	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, chunking.DefaultConfig(), cfg.Strategies[0])
}

func TestFromEnv_MissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := FromEnv()
	require.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestFromEnv_BadInt(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docmcp")
	t.Setenv("EMBEDDING_DIMENSIONS", "lots")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBEDDING_DIMENSIONS")
}

func TestParseStrategies(t *testing.T) {
	strategies, err := parseStrategies(
		`[{"name":"fine","parent_chunk_size":1000,"child_chunk_size":400,"overlap_percent":10},
		  {"parent_chunk_size":3000,"child_chunk_size":1200,"overlap_percent":25}]`)
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, "fine", strategies[0].Name)
	assert.Equal(t, 1000, strategies[0].ParentChunkSize)
	assert.Equal(t, 1200, strategies[1].ChildChunkSize)

	_, err = parseStrategies(`[{"parent_chunk_size":100,"child_chunk_size":400}]`)
	require.ErrorIs(t, err, chunking.ErrChildLargerThanParent)

	_, err = parseStrategies(`not json`)
	require.Error(t, err)

	strategies, err = parseStrategies("")
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Equal(t, chunking.DefaultConfig(), strategies[0])
}
