//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/Hipc/doc-mcp/log"
)

// Splitter implements the recursive hierarchical split: a parent pass over the
// document followed by a child pass over each parent span. Spans produced by
// both passes tile the text they cover, so offsets are exact; overlap
// injection extends a span backwards over its predecessor's tail and adjusts
// the start offset accordingly.
type Splitter struct {
	cfg        Config
	separators []string
}

// Option represents a functional option for configuring the Splitter.
type Option func(*Splitter)

// WithSeparators sets the separators to use in priority order.
func WithSeparators(separators []string) Option {
	return func(s *Splitter) {
		s.separators = separators
	}
}

// New creates a splitter for the given strategy.
func New(cfg Config, opts ...Option) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Splitter{
		cfg:        cfg,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Split produces the ordered parent spans of text, each carrying its ordered
// child spans. An empty text yields no spans.
func (s *Splitter) Split(text string) ([]Parent, error) {
	if text == "" {
		return nil, nil
	}

	parentPieces := s.splitWithOverlap(text, 0, len(text), s.cfg.ParentChunkSize, s.cfg.ParentOverlap())
	parents := make([]Parent, 0, len(parentPieces))
	for _, pp := range parentPieces {
		childPieces := s.splitWithOverlap(text, pp.start, pp.end, s.cfg.ChildChunkSize, s.cfg.ChildOverlap())
		children := make([]Child, 0, len(childPieces))
		for _, cp := range childPieces {
			children = append(children, Child{
				Content:  cp.content,
				StartPos: cp.start,
				EndPos:   cp.end,
			})
		}
		parents = append(parents, Parent{
			Content:  pp.content,
			StartPos: pp.start,
			EndPos:   pp.end,
			Children: children,
		})
	}
	return parents, nil
}

// piece is a located span, possibly extended backwards by overlap injection.
// content always equals text[start:end].
type piece struct {
	content string
	start   int
	end     int
}

// span is a half-open range produced by the recursive split. Spans tile the
// range they were split from.
type span struct {
	start int
	end   int
}

// splitWithOverlap splits text[lo:hi] into spans of length <= size and then
// injects overlap between adjacent spans.
func (s *Splitter) splitWithOverlap(text string, lo, hi, size, overlap int) []piece {
	var spans []span
	if overlap >= size {
		// A non-positive step would loop; emit the remainder whole.
		log.Warnf("chunking: overlap %d >= chunk size %d, emitting remaining %d chars as one chunk",
			overlap, size, hi-lo)
		spans = []span{{start: lo, end: hi}}
	} else {
		spans = s.splitRange(text, lo, hi, size, s.separators)
	}
	sep := s.primarySeparator(text[lo:hi])
	return injectOverlap(text, spans, overlap, sep)
}

// splitRange recursively splits text[lo:hi] by the separator hierarchy,
// greedily packing adjacent fragments up to size.
func (s *Splitter) splitRange(text string, lo, hi, size int, separators []string) []span {
	if hi-lo <= size {
		return []span{{start: lo, end: hi}}
	}
	if len(separators) == 0 || separators[0] == "" {
		return splitFixed(text, lo, hi, size)
	}

	sep := separators[0]
	frags := fragmentRange(text, lo, hi, sep)
	if len(frags) <= 1 {
		// Separator does not partition this range; try the next one.
		return s.splitRange(text, lo, hi, size, separators[1:])
	}

	var out []span
	cur := span{start: -1}
	flush := func() {
		if cur.start >= 0 {
			out = append(out, cur)
			cur = span{start: -1}
		}
	}
	for _, f := range frags {
		fragLen := f.end - f.start
		if fragLen > size {
			// Fragment alone exceeds the budget; recurse with finer separators.
			flush()
			out = append(out, s.splitRange(text, f.start, f.end, size, separators[1:])...)
			continue
		}
		if cur.start < 0 {
			cur = f
			continue
		}
		if f.end-cur.start > size {
			flush()
			cur = f
			continue
		}
		cur.end = f.end
	}
	flush()
	return out
}

// fragmentRange cuts text[lo:hi] at every occurrence of sep. Each fragment
// keeps its trailing separator so fragments tile the range.
func fragmentRange(text string, lo, hi int, sep string) []span {
	var frags []span
	pos := lo
	for pos < hi {
		idx := strings.Index(text[pos:hi], sep)
		if idx < 0 {
			frags = append(frags, span{start: pos, end: hi})
			break
		}
		end := pos + idx + len(sep)
		frags = append(frags, span{start: pos, end: end})
		pos = end
	}
	return frags
}

// splitFixed is the character-level fallback: tile the range in size-length
// pieces, snapping cut points to rune boundaries.
func splitFixed(text string, lo, hi, size int) []span {
	var out []span
	for start := lo; start < hi; {
		end := start + size
		if end >= hi {
			out = append(out, span{start: start, end: hi})
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			end = start + size
		}
		out = append(out, span{start: start, end: end})
		start = end
	}
	return out
}

// injectOverlap prepends, to each non-first span, the last overlap characters
// of its predecessor, trimmed at the first occurrence of sep to preserve a
// semantic boundary. Because spans tile their range, the prefix is exactly the
// text preceding the span, so the start offset stays exact.
func injectOverlap(text string, spans []span, overlap int, sep string) []piece {
	pieces := make([]piece, 0, len(spans))
	for i, sp := range spans {
		start := sp.start
		if overlap > 0 && i > 0 {
			k := overlap
			if prevLen := spans[i-1].end - spans[i-1].start; k > prevLen {
				k = prevLen
			}
			pStart := sp.start - k
			for pStart < sp.start && !utf8.RuneStart(text[pStart]) {
				pStart++
			}
			if sep != "" {
				if idx := strings.Index(text[pStart:sp.start], sep); idx >= 0 {
					pStart += idx + len(sep)
				}
			}
			start = pStart
		}
		pieces = append(pieces, piece{
			content: text[start:sp.end],
			start:   start,
			end:     sp.end,
		})
	}
	return pieces
}

// primarySeparator returns the highest-priority separator present in text.
func (s *Splitter) primarySeparator(text string) string {
	for _, sep := range s.separators {
		if sep == "" {
			return ""
		}
		if strings.Contains(text, sep) {
			return sep
		}
	}
	return ""
}
