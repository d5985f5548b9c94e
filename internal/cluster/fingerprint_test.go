package cluster_test

import (
	"testing"

	"github.com/jonesrussell/aeoscan/internal/cluster"
)

const articleHTML = `<html><head><title>A</title></head>
<body><header><nav><a>x</a></nav></header>
<main><article><h1>T</h1><p>one</p><p>two</p></article></main>
<footer><p>f</p></footer></body></html>`

const articleHTMLVariant = `<html><head><title>B</title></head>
<body><header><nav><a>y</a></nav></header>
<main><article><h1>U</h1><p>three</p><p>four</p><p>five</p></article></main>
<footer><p>f</p></footer></body></html>`

const landingHTML = `<html><head><title>L</title></head>
<body><div><section><div><span>hero</span></div></section>
<section><ul><li>a</li><li>b</li><li>c</li></ul></section></div></body></html>`

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	fp1, err := cluster.NewFingerprint([]byte(articleHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fp2, err := cluster.NewFingerprint([]byte(articleHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fp1.Hash() != fp2.Hash() {
		t.Fatal("same markup must produce the same fingerprint hash")
	}
}

func TestFingerprint_IgnoresScriptsAndStyles(t *testing.T) {
	t.Parallel()

	withScript := `<html><body><p>x</p><script>var a=1;</script><style>p{}</style></body></html>`
	without := `<html><body><p>x</p></body></html>`

	fp1, err := cluster.NewFingerprint([]byte(withScript))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fp2, err := cluster.NewFingerprint([]byte(without))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fp1.Hash() != fp2.Hash() {
		t.Fatal("script and style tags must not affect the fingerprint")
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	article, err := cluster.NewFingerprint([]byte(articleHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	variant, err := cluster.NewFingerprint([]byte(articleHTMLVariant))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	landing, err := cluster.NewFingerprint([]byte(landingHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d := cluster.Distance(article, article); d != 0 {
		t.Fatalf("identical fingerprints must have distance 0, got %f", d)
	}

	sameTemplate := cluster.Distance(article, variant)
	crossTemplate := cluster.Distance(article, landing)

	if sameTemplate >= crossTemplate {
		t.Fatalf(
			"same-template distance %f should be below cross-template distance %f",
			sameTemplate, crossTemplate,
		)
	}

	if sameTemplate >= cluster.DefaultThreshold {
		t.Fatalf("same-template pages should fall under the threshold, got %f", sameTemplate)
	}
}
