package httperrors

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "bridge.local"}, CategoryDNS},
		{"net timeout", timeoutErr{}, CategoryTimeout},
		{"deadline text", errors.New("context deadline exceeded"), CategoryTimeout},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, CategoryRefused},
		{"tls", errors.New("x509: certificate signed by unknown authority"), CategoryTLS},
		{"5xx", fmt.Errorf("bridge answered: status 502 Bad Gateway"), CategoryServer},
		{"breaker", errors.New("circuit breaker is open"), CategoryBreaker},
		{"bad json", errors.New("invalid json in response"), CategoryMalformed},
		{"other", errors.New("eof"), CategoryConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Connection to bridge.local refused",
		Describe(errors.New("dial tcp: connection refused"), "bridge.local"))
	assert.Equal(t, "Failed to connect to the bridge", Describe(errors.New("eof"), ""))
}

func TestExtractHostFromURL(t *testing.T) {
	assert.Equal(t, "bridge.local:3001", ExtractHostFromURL("http://bridge.local:3001/chaincode"))
	assert.Equal(t, "server", ExtractHostFromURL("::"))
}
