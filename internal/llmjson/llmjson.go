//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package llmjson extracts JSON values from chat-model output, which often
// wraps them in prose or markdown fences.
package llmjson

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrNoJSON indicates that no parseable JSON value was found in the text.
var ErrNoJSON = errors.New("no JSON value found in model output")

// ExtractObject returns the first balanced {...} slice of raw as a parsed
// gjson result.
func ExtractObject(raw string) (gjson.Result, error) {
	return extract(raw, '{', '}')
}

// ExtractArray returns the first balanced [...] slice of raw as a parsed
// gjson result.
func ExtractArray(raw string) (gjson.Result, error) {
	return extract(raw, '[', ']')
}

func extract(raw string, open, close byte) (gjson.Result, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case open:
			if start < 0 {
				start = i
			}
			depth++
		case close:
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if !gjson.Valid(candidate) {
					return gjson.Result{}, ErrNoJSON
				}
				return gjson.Parse(candidate), nil
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return gjson.Result{}, ErrNoJSON
}
