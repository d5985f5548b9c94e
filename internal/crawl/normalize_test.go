package crawl_test

import (
	"testing"

	"github.com/jonesrussell/aeoscan/internal/crawl"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare root", "https://example.com", "https://example.com/"},
		{"trailing slash stripped", "https://example.com/docs/", "https://example.com/docs"},
		{"fragment stripped", "https://example.com/docs#intro", "https://example.com/docs"},
		{"query stripped", "https://example.com/docs?utm_source=x", "https://example.com/docs"},
		{"host lowercased", "https://Example.COM/Docs", "https://example.com/Docs"},
		{"default port removed", "https://example.com:443/a", "https://example.com/a"},
		{"http default port removed", "http://example.com:80/a", "http://example.com/a"},
		{"non-default port kept", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"dot segments resolved", "https://example.com/a/../b/./c", "https://example.com/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := crawl.NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "not a url", "/relative/path", "mailto:x@example.com"} {
		if _, err := crawl.NormalizeURL(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestNormalizeURL_Deterministic(t *testing.T) {
	t.Parallel()

	// Equivalent spellings of the same resource must normalize identically.
	variants := []string{
		"https://example.com/pricing/",
		"https://example.com/pricing#plans",
		"https://EXAMPLE.com/pricing",
		"https://example.com:443/pricing",
	}

	first, err := crawl.NormalizeURL(variants[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, v := range variants[1:] {
		got, normErr := crawl.NormalizeURL(v)
		if normErr != nil {
			t.Fatalf("unexpected error for %q: %v", v, normErr)
		}
		if got != first {
			t.Fatalf("expected %q to normalize to %q, got %q", v, first, got)
		}
	}
}

func TestSameOrigin(t *testing.T) {
	t.Parallel()

	if !crawl.SameOrigin("https://example.com/a", "https://example.com/b?x=1") {
		t.Fatal("expected same origin")
	}
	if crawl.SameOrigin("https://example.com/a", "https://other.com/a") {
		t.Fatal("expected different origin")
	}
	if crawl.SameOrigin("https://example.com/a", "http://example.com/a") {
		t.Fatal("scheme mismatch should not be same origin")
	}
}
