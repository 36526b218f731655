// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns bridge network failures into user-friendly messages.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is the coarse class of a network failure.
type Category string

const (
	CategoryTimeout    Category = "timeout"
	CategoryDNS        Category = "dns"
	CategoryRefused    Category = "refused"
	CategoryTLS        Category = "tls"
	CategoryServer     Category = "server"
	CategoryBreaker    Category = "breaker"
	CategoryMalformed  Category = "malformed"
	CategoryConnection Category = "connection"
)

// Classify inspects err and returns its category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryConnection
	case isDNSError(err):
		return CategoryDNS
	case isTimeoutError(err):
		return CategoryTimeout
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isSSLError(err):
		return CategoryTLS
	case strings.Contains(strings.ToLower(err.Error()), "breaker is open"):
		return CategoryBreaker
	case isServerError(err.Error()):
		return CategoryServer
	case isMalformed(err.Error()):
		return CategoryMalformed
	}
	return CategoryConnection
}

// Describe returns a one-line message suitable for a notification sink.
func Describe(err error, host string) string {
	if host == "" {
		host = "the bridge"
	}
	switch Classify(err) {
	case CategoryTimeout:
		return fmt.Sprintf("Timed out waiting for %s", host)
	case CategoryDNS:
		return fmt.Sprintf("Cannot resolve %s", host)
	case CategoryRefused:
		return fmt.Sprintf("Connection to %s refused", host)
	case CategoryTLS:
		return fmt.Sprintf("Secure connection to %s failed", host)
	case CategoryServer:
		return fmt.Sprintf("%s returned a server error", host)
	case CategoryBreaker:
		return fmt.Sprintf("Too many failures talking to %s, pausing requests", host)
	case CategoryMalformed:
		return fmt.Sprintf("%s sent a response that is not valid JSON", host)
	}
	return fmt.Sprintf("Failed to connect to %s", host)
}

// FormatNetworkError prints troubleshooting help for err and returns it wrapped.
func FormatNetworkError(err error, context string) error {
	if err == nil {
		return nil
	}
	displayErrorMessage(err, context)
	return fmt.Errorf("network error: %w", err)
}

func displayErrorMessage(err error, context string) {
	switch Classify(err) {
	case CategoryTimeout:
		pterm.Printf("⏱️  Connection timeout while %s\n", context)
		bullets("The bridge took too long to respond. Check:",
			"the polling interval is not shorter than the bridge latency",
			"the bridge host is reachable from this network")
	case CategoryDNS:
		pterm.Printf("🌐 Cannot resolve bridge address while %s\n", context)
		bullets("Check:",
			"url_rest_root in 'ccmonitor config show'",
			"DNS settings and VPN connectivity")
	case CategoryRefused:
		pterm.Printf("🚫 Connection refused while %s\n", context)
		bullets("The bridge is not accepting connections. Check:",
			"the bridge process is running",
			"host and port in url_rest_root")
	case CategoryTLS:
		pterm.Printf("🔒 Secure connection failed while %s\n", context)
		bullets("Cannot establish HTTPS. Check:",
			"the bridge certificate",
			"your system clock")
	case CategoryServer:
		pterm.Printf("⚠️  Bridge error while %s\n", context)
		bullets("The bridge answered with a 5xx status. Its logs should say why.")
	default:
		pterm.Printf("❌ Cannot reach the bridge while %s\n", context)
		bullets("Check your network connection and the configured endpoint.")
	}
	if s := err.Error(); s != "" {
		if len(s) > 100 {
			s = s[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", s)
	}
}

func bullets(title string, items ...string) {
	pterm.Println()
	pterm.Println(title)
	for _, it := range items {
		pterm.Println("  • " + it)
	}
	pterm.Println()
}

func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"status 500", "status 502", "status 503", "status 504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isMalformed(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "invalid json") || strings.Contains(lower, "malformed")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
