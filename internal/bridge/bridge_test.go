package bridge

import (
	"testing"

	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsTransport(t *testing.T) {
	t.Run("default is http with init support", func(t *testing.T) {
		b, err := New(config.Defaults().Transport)
		require.NoError(t, err)
		defer b.Close()
		_, ok := b.(backend.Initializer)
		assert.True(t, ok)
	})

	t.Run("grpc", func(t *testing.T) {
		ts := config.Defaults().Transport
		ts.Kind = "GRPC"
		ts.GRPCAddress = "127.0.0.1:50051"
		ts.GRPCInsecure = true
		b, err := New(ts)
		require.NoError(t, err)
		defer b.Close()
		_, ok := b.(backend.Initializer)
		assert.False(t, ok)
	})

	t.Run("grpc without address", func(t *testing.T) {
		ts := config.Defaults().Transport
		ts.Kind = "grpc"
		_, err := New(ts)
		assert.True(t, cerrors.Is(err, cerrors.KindConfig))
	})

	t.Run("unknown", func(t *testing.T) {
		ts := config.Defaults().Transport
		ts.Kind = "smoke-signal"
		_, err := New(ts)
		assert.True(t, cerrors.Is(err, cerrors.KindConfig))
	})
}
