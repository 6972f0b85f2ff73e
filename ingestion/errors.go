//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package ingestion

import "errors"

// ErrMissingProject indicates the ingest request named no project.
var ErrMissingProject = errors.New("ingestion: project name is required")
