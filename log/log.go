//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package log provides the process-wide leveled logger shared by the doc-mcp
// components, backed by a zap SugaredLogger.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface the components write to.
type Logger interface {
	// Info logs at info level in the manner of fmt.Print.
	Info(args ...any)
	// Infof logs at info level in the manner of fmt.Printf.
	Infof(format string, args ...any)
	// Warnf logs at warn level in the manner of fmt.Printf.
	Warnf(format string, args ...any)
	// Errorf logs at error level in the manner of fmt.Printf.
	Errorf(format string, args ...any)
	// Fatalf logs at fatal level in the manner of fmt.Printf, then exits.
	Fatalf(format string, args ...any)
}

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Default is the process-wide logger. Replace it to redirect the package
// helpers, e.g. with a recording logger in tests.
var Default Logger = newLogger()

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stdout),
		level,
	)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetLevel adjusts the level of the default logger. Unrecognized names keep
// the info level.
func SetLevel(name string) {
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)
}

// Info logs at info level in the manner of fmt.Print.
func Info(args ...any) {
	Default.Info(args...)
}

// Infof logs at info level in the manner of fmt.Printf.
func Infof(format string, args ...any) {
	Default.Infof(format, args...)
}

// Warnf logs at warn level in the manner of fmt.Printf.
func Warnf(format string, args ...any) {
	Default.Warnf(format, args...)
}

// Errorf logs at error level in the manner of fmt.Printf.
func Errorf(format string, args ...any) {
	Default.Errorf(format, args...)
}

// Fatalf logs at fatal level in the manner of fmt.Printf, then exits.
func Fatalf(format string, args ...any) {
	Default.Fatalf(format, args...)
}
