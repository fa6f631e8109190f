package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func TestRobotsCacheDisallowsMatchedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rc := NewRobotsCache(&http.Client{Timeout: 2 * time.Second}, arbor.NewLogger())

	allowedURL, _ := url.Parse(srv.URL + "/public")
	ok, err := rc.Allowed(context.Background(), allowedURL, "webpscan")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !ok {
		t.Error("expected /public to be allowed")
	}

	disallowedURL, _ := url.Parse(srv.URL + "/private/secret")
	ok, err = rc.Allowed(context.Background(), disallowedURL, "webpscan")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if ok {
		t.Error("expected /private/secret to be disallowed")
	}
}

func TestRobotsCacheDefaultsToAllowWhenUnreachable(t *testing.T) {
	rc := NewRobotsCache(&http.Client{Timeout: 500 * time.Millisecond}, arbor.NewLogger())

	target, _ := url.Parse("http://127.0.0.1:1/anything")
	ok, err := rc.Allowed(context.Background(), target, "webpscan")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !ok {
		t.Error("expected default-allow when robots.txt is unreachable")
	}
}

func TestRobotsCacheCachesPerHost(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer srv.Close()

	rc := NewRobotsCache(&http.Client{Timeout: 2 * time.Second}, arbor.NewLogger())
	target, _ := url.Parse(srv.URL + "/one")
	other, _ := url.Parse(srv.URL + "/two")

	if _, err := rc.Allowed(context.Background(), target, "webpscan"); err != nil {
		t.Fatal(err)
	}
	if _, err := rc.Allowed(context.Background(), other, "webpscan"); err != nil {
		t.Fatal(err)
	}

	if hits != 1 {
		t.Fatalf("expected exactly 1 robots.txt fetch for repeated requests to the same host, got %d", hits)
	}
}
