package auth

import (
	"fmt"
	"net"
)

// CanonicalizeIP converts an IP address to its canonical 16-byte string representation.
// "2001:db8::1" and "2001:db8:0:0:0:0:0:1" produce the same output, as do
// "127.0.0.1" and "::ffff:127.0.0.1".
func CanonicalizeIP(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}

	canonical := parsed.To16()
	if canonical == nil {
		return "", fmt.Errorf("failed to canonicalize IP address: %s", ip)
	}
	return canonical.String(), nil
}

// clientKey is the rate limit key for an unauthenticated caller
func clientKey(ip string) string {
	if canonical, err := CanonicalizeIP(ip); err == nil {
		return "ip:" + canonical
	}
	return "ip:" + ip
}
