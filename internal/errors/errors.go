// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure that crosses a package boundary carries a machine-readable Kind so
// the reconciler and the CLI can tell a network problem from a contract-level
// rejection without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindTransport covers network failures, non-2xx statuses and unparseable bodies.
	KindTransport Kind = "transport"
	// KindApplication is a well-formed response whose body carries an error member.
	KindApplication Kind = "application"
	// KindIndex is returned when a result selector does not resolve to an entry.
	KindIndex Kind = "index"
	// KindConfig indicates unreadable or invalid settings.
	KindConfig Kind = "config"
	// KindCredentials indicates missing or unusable bridge credentials.
	KindCredentials Kind = "credentials"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the outermost *E in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// MessageOf returns the human-facing message of the outermost *E, falling back to err.Error().
func MessageOf(err error) string {
	var e *E
	if stderrors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
