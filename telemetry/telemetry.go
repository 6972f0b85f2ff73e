//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package telemetry holds the OpenTelemetry tracer shared by the ingestion
// and retrieval pipelines. Without a registered tracer provider the spans
// are no-ops, so instrumented code paths carry no overhead by default.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the tracer used by the ingestion and retrieval pipelines.
var Tracer trace.Tracer = otel.Tracer("doc-mcp")

// Span attribute keys.
const (
	KeyDocumentID  = "doc_mcp.document_id"
	KeyProjectName = "doc_mcp.project_name"
	KeyStrategy    = "doc_mcp.query_strategy"
	KeyResultCount = "doc_mcp.result_count"
)

// String builds a string span attribute.
func String(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Int builds an integer span attribute.
func Int(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}
