package pdfname

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestExtractDerivesTitleFromFilename(t *testing.T) {
	html := `<html><body>
		<a href="/docs/4pipes_Stellenausschreibung_Vertriebsmitarbeiter-Innendienst_20251027.pdf">Download</a>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := Extract(doc, "https://acme.example/karriere")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Title != "Vertriebsmitarbeiter-Innendienst" {
		t.Errorf("unexpected title: %q", got[0].Title)
	}
}

func TestExtractSkipsNonJobDocuments(t *testing.T) {
	html := `<html><body><a href="/docs/agb.pdf">Terms</a></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := Extract(doc, "https://acme.example")
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestExtractDeduplicates(t *testing.T) {
	html := `<html><body>
		<a href="/docs/stellenausschreibung_developer_v1.pdf">A</a>
		<a href="/docs/stellenausschreibung_developer_v2.pdf">B</a>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := Extract(doc, "https://acme.example")
	if len(got) != 1 {
		t.Fatalf("expected dedup to 1 candidate, got %d", len(got))
	}
}
