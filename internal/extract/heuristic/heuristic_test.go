package heuristic

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestGenderNotationFindsCandidate(t *testing.T) {
	html := `<html><body>
		<a href="/jobs/1">Senior Developer (m/w/d) - Berlin</a>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := GenderNotation(doc, "https://acme.example")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(got), got)
	}
	if got[0].URL != "https://acme.example/jobs/1" {
		t.Errorf("unexpected url: %q", got[0].URL)
	}
}

func TestGenderNotationSkipsStandaloneNotation(t *testing.T) {
	html := `<html><body><span>(m/w/d)</span></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := GenderNotation(doc, "https://acme.example")
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestListStructureFindsRepeatedItems(t *testing.T) {
	html := `<html><body>
		<ul>
			<li><a href="/jobs/1">Senior Software Engineer</a></li>
			<li><a href="/jobs/2">Lead Product Manager</a></li>
		</ul>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := ListStructure(doc, "https://acme.example")
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
}

func TestKeywordMatchFindsTitledHeading(t *testing.T) {
	html := `<html><body><h2>Senior Backend Engineer</h2></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := KeywordMatch(doc, "https://acme.example")
	if len(got) != 1 || got[0].Title != "Senior Backend Engineer" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestKeywordMatchRejectsNavLink(t *testing.T) {
	html := `<html><body><a href="/">Home</a></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	got := KeywordMatch(doc, "https://acme.example")
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}
