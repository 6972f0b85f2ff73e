//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	obj, err := ExtractObject("Sure thing:\n```json\n{\"strategy\": \"hyde\", \"confidence\": 0.8}\n```")
	require.NoError(t, err)
	assert.Equal(t, "hyde", obj.Get("strategy").String())
	assert.InDelta(t, 0.8, obj.Get("confidence").Float(), 1e-9)

	// Braces inside strings must not unbalance the scan.
	obj, err = ExtractObject(`{"reason": "uses {braces} and \"quotes\"", "ok": true}`)
	require.NoError(t, err)
	assert.True(t, obj.Get("ok").Bool())

	_, err = ExtractObject("no json here")
	require.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractObject("{broken")
	require.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractArray(t *testing.T) {
	arr, err := ExtractArray("scores: [{\"id\":1,\"score\":9},{\"id\":2,\"score\":0}] done")
	require.NoError(t, err)
	items := arr.Array()
	require.Len(t, items, 2)
	assert.Equal(t, int64(9), items[0].Get("score").Int())

	_, err = ExtractArray("{\"not\": \"an array\"}")
	require.ErrorIs(t, err, ErrNoJSON)
}
