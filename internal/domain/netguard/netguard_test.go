// Copyright 2026 CoreAgent Authors. All rights reserved.

package netguard

import "testing"

func TestIsLocalhost(t *testing.T) {
	cases := map[string]bool{
		"localhost":  true,
		"127.0.0.1":  true,
		"127.0.0.2":  true,
		"::1":        true,
		"[::1]":      true,
		"example.com": false,
		"8.8.8.8":    false,
	}
	for host, want := range cases {
		if got := IsLocalhost(host); got != want {
			t.Errorf("IsLocalhost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.0.0.1", "10.255.255.255", "172.16.0.1", "172.31.255.255", "192.168.1.1", "192.168.0.1", "169.254.1.1"}
	for _, ip := range private {
		if !IsPrivateIP(ip) {
			t.Errorf("IsPrivateIP(%q) = false, want true", ip)
		}
	}

	notPrivate := []string{"8.8.8.8", "172.32.0.1", "example.com"}
	for _, ip := range notPrivate {
		if IsPrivateIP(ip) {
			t.Errorf("IsPrivateIP(%q) = true, want false", ip)
		}
	}
}

func TestIsPrivateIPv6(t *testing.T) {
	if !IsPrivateIP("fe80::1") {
		t.Error("expected fe80::1 link-local to be private")
	}
	if !IsPrivateIP("fc00::1") {
		t.Error("expected fc00::1 unique-local to be private")
	}
	if IsPrivateIP("2001:4860:4860::8888") {
		t.Error("expected public IPv6 to not be private")
	}
}

func TestIsHTMLContentType(t *testing.T) {
	if !IsHTMLContentType("text/html") || !IsHTMLContentType("text/html; charset=utf-8") || !IsHTMLContentType("TEXT/HTML") {
		t.Error("expected text/html variants to be recognized")
	}
	if !IsHTMLContentType("application/xhtml+xml") {
		t.Error("expected application/xhtml+xml to be recognized")
	}
	if IsHTMLContentType("application/json") || IsHTMLContentType("text/plain") {
		t.Error("expected non-HTML content types to be rejected")
	}
}

func TestValidateURLRejectsFileScheme(t *testing.T) {
	if _, err := ValidateURL("file:///etc/passwd", Default()); err == nil {
		t.Error("expected file:// to be rejected")
	}
}

func TestValidateURLRejectsLocalhost(t *testing.T) {
	if _, err := ValidateURL("http://localhost:8080/", Default()); err == nil {
		t.Error("expected localhost to be rejected")
	}
}

func TestValidateURLRejectsPrivateIP(t *testing.T) {
	if _, err := ValidateURL("http://192.168.1.1/", Default()); err == nil {
		t.Error("expected private IP to be rejected")
	}
}

func TestValidateURLAllowsLocalhostWhenConfigured(t *testing.T) {
	if _, err := ValidateURL("http://127.0.0.1:9000/", Config{AllowLocalhost: true}); err != nil {
		t.Errorf("expected localhost to be allowed in test config, got %v", err)
	}
}

func TestValidateURLAllowsPublicHTTPS(t *testing.T) {
	if _, err := ValidateURL("https://example.com/docs", Default()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
