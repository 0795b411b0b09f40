package schemaorg

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestExtractJSONLD(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type":"JobPosting","title":"Backend Engineer","url":"/jobs/1","jobLocation":{"address":{"addressLocality":"Berlin"}}}
		</script>
	</head></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := Extract(doc, "https://acme.example")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Title != "Backend Engineer" || got[0].Location != "Berlin" {
		t.Errorf("unexpected candidate: %+v", got[0])
	}
	if got[0].URL != "https://acme.example/jobs/1" {
		t.Errorf("unexpected url: %q", got[0].URL)
	}
}

func TestExtractMicrodata(t *testing.T) {
	html := `<html><body>
		<div itemtype="http://schema.org/JobPosting">
			<span itemprop="title">QA Tester</span>
			<a itemprop="url" href="/jobs/5"></a>
			<div itemprop="jobLocation"><span itemprop="addressLocality">Vienna</span></div>
		</div>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := Extract(doc, "https://acme.example")
	if len(got) != 1 || got[0].Location != "Vienna" {
		t.Fatalf("unexpected result: %+v", got)
	}
}
