// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package netguard holds the SSRF pre-flight checks shared by any tool
// that fetches a user-supplied URL: scheme allowlisting and
// localhost/private-network host rejection.
package netguard

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Config controls how strict URL validation is.
type Config struct {
	AllowLocalhost bool // test-only escape hatch; never set in production
}

// Default is the production configuration: no localhost, no private IPs.
func Default() Config { return Config{AllowLocalhost: false} }

// ValidateURL parses raw and rejects anything that isn't a plain http(s)
// request to a public host.
func ValidateURL(raw string, cfg Config) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		// allowed
	case "file":
		return nil, fmt.Errorf("file:// URLs are not allowed")
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q: only http and https are allowed", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("URL has no host")
	}

	if !cfg.AllowLocalhost {
		if IsLocalhost(host) {
			return nil, fmt.Errorf("requests to localhost are not allowed")
		}
		if IsPrivateIP(host) {
			return nil, fmt.Errorf("requests to private/internal IP addresses are not allowed")
		}
	}

	return u, nil
}

// IsLocalhost reports whether host (without brackets) refers to the
// local machine.
func IsLocalhost(host string) bool {
	h := strings.ToLower(strings.Trim(host, "[]"))
	if h == "localhost" || h == "::1" {
		return true
	}
	if strings.HasPrefix(h, "127.") {
		return true
	}
	return false
}

// IsPrivateIP reports whether host is a literal IP address in a
// private, link-local, or unique-local range. Hostnames that are not IP
// literals are not private by this check — DNS resolution happens later,
// at connection time, where Go's transport performs its own checks.
func IsPrivateIP(host string) bool {
	h := strings.Trim(host, "[]")
	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}

	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 10:
			return true
		case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31:
			return true
		case ip4[0] == 192 && ip4[1] == 168:
			return true
		case ip4[0] == 169 && ip4[1] == 254:
			return true
		}
		return false
	}

	// IPv6: loopback, link-local (fe80::/10), unique-local (fc00::/7).
	if ip.IsLoopback() {
		return true
	}
	segments := ip.To16()
	if segments == nil {
		return false
	}
	first2 := uint16(segments[0])<<8 | uint16(segments[1])
	if first2&0xffc0 == 0xfe80 {
		return true
	}
	if first2&0xfe00 == 0xfc00 {
		return true
	}
	return false
}

// IsHTMLContentType reports whether contentType (as returned in a
// Content-Type header, possibly with a charset suffix) indicates HTML.
func IsHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
