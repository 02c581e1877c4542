package houm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const siteDoc = `{
	"lights": [
		{"_id": "aaa", "type": "dimmable", "name": "Hall", "protocol": "zwave", "on": true, "bri": 128},
		{"_id": "bbb", "type": "binary", "name": "Porch", "protocol": "433", "on": false, "bri": 0}
	]
}`

func TestSiteInfoURL(t *testing.T) {
	got := SiteInfoURL("https://example.test", "abc123")
	want := "https://example.test/api/site/abc123"
	if got != want {
		t.Errorf("SiteInfoURL() = %q, want %q", got, want)
	}
}

func TestFetchSiteInfo(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(siteDoc))
	}))
	defer srv.Close()

	info, err := FetchSiteInfo(context.Background(), srv.Client(), srv.URL, "abc123")
	if err != nil {
		t.Fatalf("FetchSiteInfo() error = %v", err)
	}

	if gotPath != "/api/site/abc123" {
		t.Errorf("request path = %q, want /api/site/abc123", gotPath)
	}
	if len(info.Lights) != 2 {
		t.Fatalf("lights = %d, want 2", len(info.Lights))
	}

	first := info.Lights[0]
	if first.ID != "aaa" || first.Type != "dimmable" || first.Name != "Hall" ||
		first.Protocol != "zwave" || !first.On || first.Bri != 128 {
		t.Errorf("first light = %+v", first)
	}
}

func TestFetchSiteInfoConnectionRefused(t *testing.T) {
	// Port from a just-closed server: nothing listens there.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := FetchSiteInfo(context.Background(), nil, url, "abc123")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("FetchSiteInfo() error = %v, want ErrNetwork", err)
	}
}

func TestFetchSiteInfoMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"lights": [`))
	}))
	defer srv.Close()

	_, err := FetchSiteInfo(context.Background(), srv.Client(), srv.URL, "abc123")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("FetchSiteInfo() error = %v, want ErrNetwork", err)
	}
}

func TestFetchSiteInfoIgnoresStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(siteDoc))
	}))
	defer srv.Close()

	info, err := FetchSiteInfo(context.Background(), srv.Client(), srv.URL, "abc123")
	if err != nil {
		t.Fatalf("FetchSiteInfo() error = %v", err)
	}
	if len(info.Lights) != 2 {
		t.Errorf("lights = %d, want 2", len(info.Lights))
	}
}

func TestFetchSiteInfoCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(siteDoc))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchSiteInfo(ctx, srv.Client(), srv.URL, "abc123")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("FetchSiteInfo() error = %v, want ErrNetwork", err)
	}
}
