// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"github.com/pterm/pterm"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCErrorType represents the category of a gRPC bridge failure.
type GRPCErrorType int

const (
	GRPCErrorUnknown GRPCErrorType = iota
	GRPCErrorNetwork
	GRPCErrorAuth
	GRPCErrorTimeout
	GRPCErrorInternal
	GRPCErrorUnavailable
)

// ParseGRPCError categorizes err, preferring the status code and falling back
// to the message text for errors that lost their status on the way up.
func ParseGRPCError(err error) GRPCErrorType {
	if err == nil {
		return GRPCErrorUnknown
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable:
			return GRPCErrorUnavailable
		case codes.DeadlineExceeded:
			return GRPCErrorTimeout
		case codes.Unauthenticated, codes.PermissionDenied:
			return GRPCErrorAuth
		case codes.Internal, codes.DataLoss:
			return GRPCErrorInternal
		case codes.Aborted, codes.Canceled:
			return GRPCErrorNetwork
		}
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "rst_stream"), strings.Contains(lower, "connection reset"):
		return GRPCErrorNetwork
	case strings.Contains(lower, "unavailable"):
		return GRPCErrorUnavailable
	case strings.Contains(lower, "deadline"), strings.Contains(lower, "timeout"):
		return GRPCErrorTimeout
	case strings.Contains(lower, "unauthenticated"), strings.Contains(lower, "unauthorized"):
		return GRPCErrorAuth
	}
	return GRPCErrorUnknown
}

// SummarizeGRPCError returns a one-line, user-facing description of err.
func SummarizeGRPCError(err error) string {
	switch ParseGRPCError(err) {
	case GRPCErrorNetwork:
		return "connection to the bridge was interrupted"
	case GRPCErrorAuth:
		return "the bridge rejected the credentials; run 'ccmonitor login'"
	case GRPCErrorTimeout:
		return "the bridge did not answer in time"
	case GRPCErrorInternal:
		return "the bridge reported an internal error"
	case GRPCErrorUnavailable:
		return "the bridge is unavailable"
	default:
		return "the bridge call failed"
	}
}

// FormatBridgeError renders a gRPC failure as a short block for the terminal.
func FormatBridgeError(err error) string {
	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Bridge call failed"))
	b.WriteString("\n")
	b.WriteString(SummarizeGRPCError(err))
	b.WriteString("\n")
	if err != nil {
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	}
	return b.String()
}
