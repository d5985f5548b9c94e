// Package cluster groups fetched pages into template clusters by
// structural similarity and selects representative pages per cluster so
// the evaluator can sample instead of scoring every page.
package cluster

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fingerprint is an order-independent structural signature of a page:
// a multiset of parent>child tag tokens. Identical markup always yields
// an identical fingerprint, so clustering is stable across runs.
type Fingerprint map[string]int

// skippedTags are excluded from fingerprints; they vary with content
// and delivery rather than template structure.
var skippedTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"svg":      {},
	"path":     {},
}

// NewFingerprint parses HTML and builds its structural fingerprint.
func NewFingerprint(html []byte) (Fingerprint, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("fingerprint: parse html: %w", err)
	}

	fp := Fingerprint{}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if _, skip := skippedTags[tag]; skip {
			return
		}

		parent := goquery.NodeName(s.Parent())
		if parent == "" || parent == "#document" {
			parent = "root"
		}

		fp[parent+">"+tag]++
	})

	return fp, nil
}

// Distance returns a dissimilarity in [0,1] between two fingerprints:
// one minus the weighted Jaccard similarity of their token multisets.
// Identical structures score 0; disjoint structures score 1.
func Distance(a, b Fingerprint) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	var minSum, maxSum int

	for token, countA := range a {
		countB := b[token]
		if countA < countB {
			minSum += countA
			maxSum += countB
		} else {
			minSum += countB
			maxSum += countA
		}
	}

	for token, countB := range b {
		if _, seen := a[token]; !seen {
			maxSum += countB
		}
	}

	if maxSum == 0 {
		return 1
	}

	return 1 - float64(minSum)/float64(maxSum)
}

// Hash returns a stable hex digest of the fingerprint, computed over
// tokens in sorted order so the digest is order-independent.
func (fp Fingerprint) Hash() string {
	tokens := make([]string, 0, len(fp))
	for token := range fp {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	var b strings.Builder
	for _, token := range tokens {
		fmt.Fprintf(&b, "%s:%d;", token, fp[token])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
