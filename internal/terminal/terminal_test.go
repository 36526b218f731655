package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesFor(t *testing.T) {
	tests := []struct {
		name   string
		length int
		width  int
		want   int
	}{
		{name: "empty", length: 0, width: 80, want: 2},
		{name: "one row", length: 79, width: 80, want: 2},
		{name: "wraps", length: 81, width: 80, want: 3},
		{name: "unknown width", length: 100, width: 0, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LinesFor(tt.length, tt.width))
		})
	}
}

func TestPrompterReadsPipedAnswers(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompterFrom(strings.NewReader("org1\n  s3cret  \n"), &out)

	key, err := p.ReadLine("Key: ")
	require.NoError(t, err)
	secret, err := p.ReadSecret("Secret: ")
	require.NoError(t, err)

	assert.Equal(t, "org1", key)
	assert.Equal(t, "s3cret", secret)
	assert.Equal(t, "Key: Secret: ", out.String())
}

func TestPrompterLastLineWithoutNewline(t *testing.T) {
	p := NewPrompterFrom(strings.NewReader("last"), &bytes.Buffer{})
	v, err := p.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", v)

	_, err = p.ReadLine("> ")
	assert.Error(t, err)
}
