package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP resolves the address the rate limiter and audit trail key on.
// Forwarding headers win over the socket address so clients behind the edge
// proxy are limited individually rather than as one bucket, but a header
// value only counts when it parses as an IP.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client.
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		if net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
