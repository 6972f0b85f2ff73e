//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package chunking

import (
	"errors"
	"strings"
	"testing"
)

// TestConfig_Validate verifies strategy parameter validation at the edge.
func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"defaults", DefaultConfig(), nil},
		{"zero parent", Config{ParentChunkSize: 0, ChildChunkSize: 10}, ErrInvalidChunkSize},
		{"zero child", Config{ParentChunkSize: 10, ChildChunkSize: 0}, ErrInvalidChunkSize},
		{"child larger", Config{ParentChunkSize: 10, ChildChunkSize: 20}, ErrChildLargerThanParent},
		{"overlap 100", Config{ParentChunkSize: 100, ChildChunkSize: 50, OverlapPercent: 100}, ErrOverlapTooLarge},
		{"overlap negative", Config{ParentChunkSize: 100, ChildChunkSize: 50, OverlapPercent: -1}, ErrInvalidOverlap},
		{"overlap 99", Config{ParentChunkSize: 100, ChildChunkSize: 50, OverlapPercent: 99}, nil},
	}
	for _, tc := range cases {
		if got := tc.cfg.Validate(); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

// TestSplit_Empty ensures an empty document yields no spans.
func TestSplit_Empty(t *testing.T) {
	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parents, err := s.Split("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) != 0 {
		t.Fatalf("expected no parents, got %d", len(parents))
	}
}

// TestSplit_SmallDocument verifies that content shorter than the child chunk
// size produces exactly one parent with exactly one child equal to the input.
func TestSplit_SmallDocument(t *testing.T) {
	const text = "The getUserById API fetches a user by primary key."

	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parents, err := s.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) != 1 {
		t.Fatalf("expected one parent, got %d", len(parents))
	}
	p := parents[0]
	if p.Content != text || p.StartPos != 0 || p.EndPos != len(text) {
		t.Fatalf("parent does not cover the document: %+v", p)
	}
	if len(p.Children) != 1 {
		t.Fatalf("expected one child, got %d", len(p.Children))
	}
	if c := p.Children[0]; c.Content != text || c.StartPos != 0 || c.EndPos != len(text) {
		t.Fatalf("child does not equal the document: %+v", c)
	}
}

// TestSplit_ZeroOverlapRoundTrip checks that with overlap 0 the parents tile
// the document: concatenating them in order reproduces the original text.
func TestSplit_ZeroOverlapRoundTrip(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80)

	s, err := New(Config{ParentChunkSize: 200, ChildChunkSize: 80, OverlapPercent: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parents, err := s.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) < 2 {
		t.Fatalf("expected multiple parents, got %d", len(parents))
	}

	var sb strings.Builder
	prevEnd := 0
	for i, p := range parents {
		if p.StartPos != prevEnd {
			t.Fatalf("parent %d does not start where its predecessor ends: %d != %d", i, p.StartPos, prevEnd)
		}
		if p.Content != text[p.StartPos:p.EndPos] {
			t.Fatalf("parent %d content does not match its offsets", i)
		}
		if len(p.Content) > 200 {
			t.Fatalf("parent %d exceeds size limit: %d", i, len(p.Content))
		}
		sb.WriteString(p.Content)
		prevEnd = p.EndPos

		// Children tile their parent.
		childEnd := p.StartPos
		for j, c := range p.Children {
			if c.StartPos != childEnd {
				t.Fatalf("child %d/%d does not tile: %d != %d", i, j, c.StartPos, childEnd)
			}
			if c.StartPos < p.StartPos || c.EndPos > p.EndPos || c.StartPos >= c.EndPos {
				t.Fatalf("child %d/%d escapes its parent bounds", i, j)
			}
			if c.Content != text[c.StartPos:c.EndPos] {
				t.Fatalf("child %d/%d content does not match its offsets", i, j)
			}
			childEnd = c.EndPos
		}
		if childEnd != p.EndPos {
			t.Fatalf("parent %d children do not cover it: %d != %d", i, childEnd, p.EndPos)
		}
	}
	if sb.String() != text {
		t.Fatalf("concatenated parents do not reproduce the original text")
	}
}

// TestSplit_OverlapInjection confirms that each non-first parent is prefixed
// with a suffix of its predecessor's tail and that offsets stay exact.
func TestSplit_OverlapInjection(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 70) // ~3100 chars

	cfg := DefaultConfig() // P=2000, C=800, overlap 25%
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parents, err := s.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) < 2 {
		t.Fatalf("expected at least two parents, got %d", len(parents))
	}

	overlap := cfg.ParentOverlap()
	for i := 1; i < len(parents); i++ {
		p := parents[i]
		if p.Content != text[p.StartPos:p.EndPos] {
			t.Fatalf("parent %d content does not match its offsets", i)
		}
		// The injected prefix is, modulo separator trim, the predecessor's
		// last parentOverlap characters; so the parent's prefix up to the
		// predecessor's end must be a suffix of that tail.
		prev := parents[i-1]
		if p.StartPos >= prev.EndPos {
			t.Fatalf("parent %d carries no overlap prefix", i)
		}
		prefix := p.Content[:prev.EndPos-p.StartPos]
		tail := prev.Content
		if len(tail) > overlap {
			tail = tail[len(tail)-overlap:]
		}
		if !strings.HasSuffix(tail, prefix) {
			t.Fatalf("parent %d prefix is not a suffix of predecessor tail", i)
		}
	}
}

// TestSplit_CharacterFallback exercises the character-level fallback on text
// with no separators at all.
func TestSplit_CharacterFallback(t *testing.T) {
	text := strings.Repeat("x", 95)

	s, err := New(Config{ParentChunkSize: 30, ChildChunkSize: 30, OverlapPercent: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parents, err := s.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) != 4 {
		t.Fatalf("expected 4 parents, got %d", len(parents))
	}
	for i, p := range parents[:3] {
		if len(p.Content) != 30 {
			t.Fatalf("parent %d: expected full tile, got %d chars", i, len(p.Content))
		}
	}
	if len(parents[3].Content) != 5 {
		t.Fatalf("last parent: expected 5 chars, got %d", len(parents[3].Content))
	}
}

// TestSplit_CJKSeparators checks that CJK sentence terminators take priority
// over finer separators.
func TestSplit_CJKSeparators(t *testing.T) {
	text := strings.Repeat("数据库连接需要配置主机名和端口。", 20)

	s, err := New(Config{ParentChunkSize: 120, ChildChunkSize: 60, OverlapPercent: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parents, err := s.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) < 2 {
		t.Fatalf("expected multiple parents, got %d", len(parents))
	}
	for i, p := range parents {
		if !strings.HasSuffix(p.Content, "。") {
			t.Fatalf("parent %d does not end at a sentence boundary: %q", i, p.Content)
		}
		if p.Content != text[p.StartPos:p.EndPos] {
			t.Fatalf("parent %d content does not match its offsets", i)
		}
	}
}

// TestSplitFixed_RuneSafety ensures the fallback never cuts a UTF-8 sequence
// in half.
func TestSplitFixed_RuneSafety(t *testing.T) {
	text := strings.Repeat("数", 50) // 3 bytes per rune, no separators

	s, err := New(Config{ParentChunkSize: 40, ChildChunkSize: 40, OverlapPercent: 0},
		WithSeparators([]string{""}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parents, err := s.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, p := range parents {
		if strings.ContainsRune(p.Content, '�') {
			t.Fatalf("parent %d contains a broken rune", i)
		}
		for _, r := range p.Content {
			if r != '数' {
				t.Fatalf("parent %d contains unexpected rune %q", i, r)
			}
		}
	}
}
