//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("postgres: not found")
	// ErrDimensionMismatch indicates an embedding does not match the
	// dimension the vector column was created with.
	ErrDimensionMismatch = errors.New("postgres: embedding dimension mismatch")
)

// IsConstraintViolation reports whether err is a Postgres integrity
// constraint violation (SQLSTATE class 23).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}

// IsStorageError reports whether err originated from the Postgres server.
func IsStorageError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
