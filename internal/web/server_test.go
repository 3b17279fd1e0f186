package web

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guidoenr/wizsync/internal/session"
)

type fakeSession struct {
	artist, track string
}

func (f *fakeSession) Snapshot() session.Status {
	return session.Status{Phase: "tracking", Artist: f.artist, Track: f.track}
}

func (f *fakeSession) SetNowPlaying(artist, track string) {
	f.artist, f.track = artist, track
}

func newTestServer() (*Server, *fakeSession) {
	sess := &fakeSession{}
	return NewServer(sess, log.New(io.Discard, "", 0)), sess
}

func TestUpdateTrack(t *testing.T) {
	srv, sess := newTestServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := strings.NewReader(`{"artist":"Daft Punk","track":"Contact"}`)
	resp, err := http.Post(ts.URL+"/update_track", "application/json", body)
	if err != nil {
		t.Fatalf("POST /update_track: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if sess.artist != "Daft Punk" || sess.track != "Contact" {
		t.Fatalf("session metadata=%q/%q", sess.artist, sess.track)
	}
}

func TestUpdateTrackRejectsGet(t *testing.T) {
	srv, _ := newTestServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/update_track")
	if err != nil {
		t.Fatalf("GET /update_track: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want 405", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, sess := newTestServer()
	sess.SetNowPlaying("Justice", "Genesis")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(raw), `"tracking"`) {
		t.Fatalf("status body missing phase: %s", raw)
	}
	if !strings.Contains(string(raw), "Justice") {
		t.Fatalf("status body missing artist: %s", raw)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/update_track", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /update_track: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("missing CORS header")
	}
}
