package crawl_test

import (
	"testing"

	"github.com/jonesrussell/aeoscan/internal/crawl"
)

func TestFrontier_DeduplicatesByNormalizedForm(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier()

	if !f.Add("https://example.com/docs") {
		t.Fatal("first add should enqueue")
	}
	if f.Add("https://example.com/docs/") {
		t.Fatal("trailing-slash variant should be a duplicate")
	}
	if f.Add("https://example.com/docs#section") {
		t.Fatal("fragment variant should be a duplicate")
	}

	if f.Len() != 1 {
		t.Fatalf("expected 1 queued URL, got %d", f.Len())
	}
}

func TestFrontier_Order(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier()
	f.Add("https://example.com/a")
	f.Add("https://example.com/b")

	first, ok := f.Next()
	if !ok || first != "https://example.com/a" {
		t.Fatalf("expected /a first, got %q", first)
	}

	second, ok := f.Next()
	if !ok || second != "https://example.com/b" {
		t.Fatalf("expected /b second, got %q", second)
	}

	if _, ok = f.Next(); ok {
		t.Fatal("expected empty frontier")
	}
}

func TestFrontier_RejectsInvalidURLs(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier()
	if f.Add("not a url") {
		t.Fatal("invalid URL must not be enqueued")
	}
	if f.Add("") {
		t.Fatal("empty URL must not be enqueued")
	}
}
