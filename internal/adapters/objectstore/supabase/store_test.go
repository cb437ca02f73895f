package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStore_UploadAndRemove(t *testing.T) {
	var gotUpload, gotRemove bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer svc" || r.Header.Get("apikey") != "svc" {
			t.Errorf("missing service role headers")
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/documentos/c1/d1/1_a.pdf":
			b, _ := io.ReadAll(r.Body)
			if string(b) != "pdf" || r.Header.Get("Content-Type") != "application/pdf" {
				t.Errorf("unexpected upload body=%q ct=%q", b, r.Header.Get("Content-Type"))
			}
			gotUpload = true
			w.Write([]byte(`{"Key":"documentos/c1/d1/1_a.pdf"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/storage/v1/object/documentos":
			var in struct {
				Prefixes []string `json:"prefixes"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			if len(in.Prefixes) != 1 || in.Prefixes[0] != "c1/d1/1_a.pdf" {
				t.Errorf("unexpected prefixes %v", in.Prefixes)
			}
			gotRemove = true
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := New(Config{BaseURL: srv.URL, ServiceKey: "svc"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()
	if err := s.Upload(ctx, "c1/d1/1_a.pdf", "application/pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if err := s.Remove(ctx, "c1/d1/1_a.pdf"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if !gotUpload || !gotRemove {
		t.Fatalf("expected both calls, upload=%v remove=%v", gotUpload, gotRemove)
	}

	want := srv.URL + "/storage/v1/object/public/documentos/c1/d1/1_a.pdf"
	if got := s.PublicURL("c1/d1/1_a.pdf"); got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}

func TestStore_UploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Duplicate"}`, http.StatusConflict)
	}))
	defer srv.Close()

	s, _ := New(Config{BaseURL: srv.URL, ServiceKey: "svc"})
	if err := s.Upload(context.Background(), "k", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}
