package browser

import (
	"errors"
	"testing"
)

func TestContainsAnyMatchesCaseInsensitively(t *testing.T) {
	if !containsAny("Open Positions", []string{"open positions"}) {
		t.Error("expected case-insensitive match")
	}
	if containsAny("about us", []string{"careers", "jobs"}) {
		t.Error("expected no match")
	}
}

func TestIsKnownExternalATSMatchesDomain(t *testing.T) {
	if !isKnownExternalATS("https://company.jobs.personio.de/job/1") {
		t.Error("expected personio.de to be recognized as a known ATS")
	}
	if isKnownExternalATS("https://example.com/about") {
		t.Error("expected an unrelated domain not to match")
	}
}

func TestIsNetworkUnreachableDetectsChromeErrorTokens(t *testing.T) {
	err := errors.New("net::ERR_NAME_NOT_RESOLVED at https://dead.example")
	if !isNetworkUnreachable(err) {
		t.Error("expected ERR_NAME_NOT_RESOLVED to be classified as network-unreachable")
	}
	if isNetworkUnreachable(errors.New("some other rendering error")) {
		t.Error("expected an unrelated error not to be classified as network-unreachable")
	}
}

func TestLooksLikeListingRequiresSeveralJobMentions(t *testing.T) {
	listing := `<div class="job-card">Job 1</div><div class="job-card">Job 2</div><div class="job-card">Job 3</div>`
	if !looksLikeListing(listing) {
		t.Error("expected repeated job-shaped markup to look like a listing")
	}
	if looksLikeListing("<p>About our company culture.</p>") {
		t.Error("expected prose without job mentions not to look like a listing")
	}
}

func TestContainsJobPathSlugHandlesNilHref(t *testing.T) {
	if containsJobPathSlug(nil) {
		t.Error("expected nil href to not match")
	}
	href := "/careers/open-roles"
	if !containsJobPathSlug(&href) {
		t.Error("expected /careers href to match a job path slug")
	}
}
