package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestParseGRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want GRPCErrorType
	}{
		{"nil", nil, GRPCErrorUnknown},
		{"unavailable status", status.Error(codes.Unavailable, "down"), GRPCErrorUnavailable},
		{"deadline status", status.Error(codes.DeadlineExceeded, "slow"), GRPCErrorTimeout},
		{"auth status", status.Error(codes.Unauthenticated, "nope"), GRPCErrorAuth},
		{"internal status", status.Error(codes.Internal, "boom"), GRPCErrorInternal},
		{"plain reset text", errors.New("read: connection reset by peer"), GRPCErrorNetwork},
		{"plain other", errors.New("weird"), GRPCErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGRPCError(tt.err))
		})
	}
}

func TestPresentErrorMasks(t *testing.T) {
	got := PresentError("history", errors.New("dial postgres://u:p@db/h failed"))
	assert.Equal(t, "history: dial postgres://*:*@db/h failed", got)
	assert.Empty(t, PresentError("x", nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}
