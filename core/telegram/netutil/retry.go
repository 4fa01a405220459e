// Package netutil classifies outbound network failures.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"regexp"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// ShouldRetry reports whether err is a transient dial or timeout failure.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Classify maps err to a short error code for logs.
func Classify(err error) string {
	var (
		dnsErr   *net.DNSError
		opErr    *net.OpError
		urlErr   *url.Error
		netErr   net.Error
		alertErr tls.AlertError
		apiErr   *tele.Error
		floodErr tele.FloodError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alertErr):
		return "tls"
	case errors.As(err, &floodErr):
		return "http_429"
	case errors.As(err, &apiErr):
		if apiErr.Code >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	case errors.As(err, &urlErr):
		return "transport"
	}
	return "unknown"
}

// RedactToken hides bot tokens that net/http embeds in request URLs.
func RedactToken(msg string) string {
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}
