package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobradar/internal/jobserr"
)

func testFetcher() *Fetcher {
	f := New(nil, nil)
	f.MaxAttempts = 2
	f.ProbeTimeout = time.Second
	return f
}

func TestGetReturns200Body(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := testFetcher()
	result, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StatusCode != 200 || string(result.Body) != "hello" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGetReturns4xxWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := testFetcher()
	result, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected no error on 404, got %v", err)
	}
	if result.StatusCode != 404 {
		t.Errorf("expected status 404, got %d", result.StatusCode)
	}
}

func TestGetClassifiesUnresolvableHostAsDomainUnreachable(t *testing.T) {
	f := testFetcher()
	_, err := f.Get(context.Background(), "http://this-host-does-not-exist.invalid")
	if !errors.Is(err, jobserr.ErrDomainUnreachable) {
		t.Errorf("expected ErrDomainUnreachable, got %v", err)
	}
}

func TestProbeDomainReportsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := testFetcher()
	reachable, err := f.ProbeDomain(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reachable {
		t.Error("expected domain to be reachable")
	}
}

func TestProbeDomainReportsUnreachableForBadHost(t *testing.T) {
	f := testFetcher()
	_, err := f.ProbeDomain(context.Background(), "http://this-host-does-not-exist.invalid")
	if !errors.Is(err, jobserr.ErrDomainUnreachable) {
		t.Errorf("expected ErrDomainUnreachable, got %v", err)
	}
}

func TestDetectRedirectFollowsToFinalURL(t *testing.T) {
	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	f := testFetcher()
	finalURL, _, err := f.DetectRedirect(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finalURL != target.URL {
		t.Errorf("expected final url %q, got %q", target.URL, finalURL)
	}
}
