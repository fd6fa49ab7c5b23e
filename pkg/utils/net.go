// Package utils provides common utility functions for HTTP operations,
// including IP address extraction and validation. These utilities handle
// various proxy configurations and IP address formats.
package utils

import (
	"net"
	"net/http"
	"strings"
)

// ExtractClientIP extracts the real client IP address from HTTP request headers.
// It checks headers in the following priority order:
// 1. X-Forwarded-For (takes the first IP if multiple are present)
// 2. X-Real-IP
// 3. RemoteAddr (strips port if present)
//
// This function is useful when the console runs behind a reverse proxy or load balancer.
func ExtractClientIP(r *http.Request) string {
	// Try X-Forwarded-For header first (reverse proxy/load balancer)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		xff = strings.TrimSpace(xff)

		// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
		// Take the first IP (the original client)
		if idx := strings.IndexAny(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}

	// Try X-Real-IP header (alternative proxy header)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	// RemoteAddr format: "IP:port" or "[IPv6]:port"
	remoteAddr := r.RemoteAddr

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}

	return remoteAddr
}

// IsPrivateIP checks if an IP address is private, loopback, or link-local.
// The console rate-limits only public traffic; requests from the operator's
// own network segment are exempt.
//
// Example:
//
//	if utils.IsPrivateIP(clientIP) {
//	    // Skip rate limiting for internal traffic
//	    next.ServeHTTP(w, r)
//	    return
//	}
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast()
}
