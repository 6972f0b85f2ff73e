//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package summarizer

import "errors"

// ErrSummaryFailure indicates that the chat endpoint failed while producing a
// summary. Callers treat this as ingestion-blocking for the affected span.
var ErrSummaryFailure = errors.New("summary request failed")
