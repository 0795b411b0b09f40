package atsparsers

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestPersonioParsesTitleLocation(t *testing.T) {
	html := `<html><body>
		<a href="/job/123">Software Engineer (all)Full-time·Munich·Berlin</a>
	</body></html>`
	doc := mustDoc(t, html)
	got := Personio{}.Parse(doc, "https://acme.jobs.personio.de")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Title != "Software Engineer" {
		t.Errorf("title = %q", got[0].Title)
	}
	if got[0].Location != "Munich" {
		t.Errorf("location = %q", got[0].Location)
	}
}

func TestLeverParsesPostingCards(t *testing.T) {
	html := `<html><body>
		<div class="posting">
			<a class="posting-title" href="/acme/abc">Backend Engineer</a>
			<span class="location">Remote</span>
		</div>
	</body></html>`
	doc := mustDoc(t, html)
	got := Lever{}.Parse(doc, "https://jobs.lever.co")
	if len(got) != 1 || got[0].Title != "Backend Engineer" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestGreenhouseLegacyFormat(t *testing.T) {
	html := `<html><body>
		<div class="opening">
			<a href="/jobs/1">Product Manager</a>
			<span class="location">Berlin, Germany</span>
		</div>
	</body></html>`
	doc := mustDoc(t, html)
	got := Greenhouse{}.Parse(doc, "https://boards.greenhouse.io/acme")
	if len(got) != 1 || got[0].Title != "Product Manager" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRecruiteeLinkFallback(t *testing.T) {
	html := `<html><body><a href="/o/data-engineer">Data Engineer</a></body></html>`
	doc := mustDoc(t, html)
	got := Recruitee{}.Parse(doc, "https://acme.recruitee.com")
	if len(got) != 1 || got[0].Title != "Data Engineer" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRecruiteeParseAPIJSON(t *testing.T) {
	body := []byte(`{"offers":[{"title":"QA Engineer","slug":"qa-engineer","city":"Vienna","department":"Engineering"}]}`)
	got := Recruitee{}.ParseAPIJSON(body, "https://acme.recruitee.com")
	if len(got) != 1 || got[0].Location != "Vienna" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestDeloitteFindsKnownCity(t *testing.T) {
	html := `<html><body><div>Berlin Office<a href="/job/55">Consultant</a></div></body></html>`
	doc := mustDoc(t, html)
	got := Deloitte{}.Parse(doc, "https://job.deloitte.com")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Location != "Berlin" {
		t.Errorf("expected location Berlin, got %q", got[0].Location)
	}
}

func TestNonJobEntryFiltered(t *testing.T) {
	html := `<html><body><a href="/job/1">Initiativbewerbung</a></body></html>`
	doc := mustDoc(t, html)
	got := Personio{}.Parse(doc, "https://acme.jobs.personio.de")
	if len(got) != 0 {
		t.Fatalf("expected non-job entry to be filtered, got %+v", got)
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	if !r.Supports("lever") {
		t.Fatal("expected lever to be supported")
	}
	if !r.IsAPIBased("recruitee") {
		t.Fatal("expected recruitee to be API-based")
	}
	if r.IsAPIBased("lever") {
		t.Fatal("lever should not be API-based")
	}
	if url := r.GetAPIURL("recruitee", "https://acme.recruitee.com"); url != "https://acme.recruitee.com/api/offers/" {
		t.Errorf("unexpected API url: %q", url)
	}
	if _, err := r.Parse(mustDoc(t, "<html></html>"), "https://x", "unknown-platform"); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
