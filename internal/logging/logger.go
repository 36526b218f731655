// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/pterm/pterm"
)

// ParseLevel maps a config string onto a pterm log level. Unknown values mean info.
func ParseLevel(s string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

// New returns a logger writing colored text lines to w.
func New(level string, w io.Writer) *pterm.Logger {
	return pterm.DefaultLogger.
		WithLevel(ParseLevel(level)).
		WithWriter(w)
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)
}

// Setup builds the process logger. With a file path, lines are JSON and the
// file is rotated by size; otherwise text goes to stderr. The returned closer
// must be closed on exit.
func Setup(level, file string) (*pterm.Logger, io.Closer) {
	if strings.TrimSpace(file) == "" {
		return New(level, os.Stderr), nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}
	l := pterm.DefaultLogger.
		WithLevel(ParseLevel(level)).
		WithFormatter(pterm.LogFormatterJSON).
		WithWriter(rotator)
	return l, rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
