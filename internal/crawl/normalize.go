// Package crawl implements the budget-gated crawling pipeline: URL
// normalization, the in-scan frontier, robots.txt compliance, fetching
// and same-origin link discovery.
package crawl

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// defaultPorts maps schemes to their default port strings.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

var (
	errEmptyInput          = errors.New("normalize url: empty input")
	errMissingSchemeOrHost = errors.New("normalize url: missing scheme or host")
)

// NormalizeURL reduces a raw URL to its deduplication form:
// scheme + host + path, with the host lowercased, default ports removed,
// dot-segments resolved, and the trailing slash and fragment stripped.
// Two URLs naming the same resource normalize to the same string, so a
// resource is never fetched twice in one scan.
func NormalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errEmptyInput
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errMissingSchemeOrHost
	}

	scheme := strings.ToLower(parsed.Scheme)

	return scheme + "://" + normalizeHost(parsed, scheme) + normalizePath(parsed.Path), nil
}

// SameOrigin reports whether two URLs share a scheme and host after
// normalization of the host.
func SameOrigin(a, b string) bool {
	pa, errA := url.Parse(a)
	pb, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}

	return strings.EqualFold(pa.Scheme, pb.Scheme) &&
		strings.EqualFold(pa.Hostname(), pb.Hostname())
}

// ExtractHost returns the hostname (without port) from a URL, lowercased.
func ExtractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("extract host: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errMissingSchemeOrHost
	}

	return strings.ToLower(parsed.Hostname()), nil
}

// normalizeHost lowercases the hostname and removes the default port
// for the URL's scheme.
func normalizeHost(u *url.URL, scheme string) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()

	if port == "" {
		return hostname
	}

	if defaultPort, ok := defaultPorts[scheme]; ok && port == defaultPort {
		return hostname
	}

	return hostname + ":" + port
}

// normalizePath resolves dot-segments and removes trailing slashes
// while preserving the root "/".
func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}

	cleaned := path.Clean(p)
	trimmed := strings.TrimRight(cleaned, "/")
	if trimmed == "" {
		return "/"
	}

	return trimmed
}
