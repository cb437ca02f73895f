package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/user":
			if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer good" {
				http.Error(w, `{"msg":"invalid JWT"}`, http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"id":"u-1","email":"ana@org.test"}`))

		case strings.HasPrefix(r.URL.Path, "/auth/v1/") && r.Header.Get("Authorization") != "Bearer service":
			http.Error(w, "forbidden", http.StatusForbidden)

		case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/invite":
			var in struct {
				Email string         `json:"email"`
				Data  map[string]any `json:"data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in.Data["role"] != "colaborador" {
				http.Error(w, "missing metadata", http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"id":"u-2","email":"` + in.Email + `"}`))

		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/admin/users":
			w.Write([]byte(`{"users":[{"id":"u-1","email":"ana@org.test"},{"id":"u-2","email":"col@org.test"}]}`))

		case r.Method == http.MethodDelete && r.URL.Path == "/auth/v1/admin/users/u-2":
			w.Write([]byte(`{}`))

		case r.Method == http.MethodPut && r.URL.Path == "/auth/v1/admin/users/u-1":
			w.Write([]byte(`{"id":"u-1"}`))

		default:
			http.NotFound(w, r)
		}
	}))
}

func TestVerifier_Verify(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c, _ := NewClient(Config{BaseURL: srv.URL, AnonKey: "anon"})
	v := NewVerifier(c)

	claims, err := v.Verify(context.Background(), "good")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "ana@org.test" {
		t.Fatalf("unexpected claims %#v", claims)
	}

	if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := v.Verify(context.Background(), " "); !errors.Is(err, ErrTokenEmpty) {
		t.Fatalf("expected ErrTokenEmpty, got %v", err)
	}
}

func TestClient_Admin(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c, _ := NewClient(Config{BaseURL: srv.URL, AnonKey: "anon", ServiceKey: "service"})
	ctx := context.Background()

	u, err := c.InviteUserByEmail(ctx, "col@org.test", map[string]any{"role": "colaborador", "organization_id": "org-1"})
	if err != nil {
		t.Fatalf("InviteUserByEmail returned error: %v", err)
	}
	if u.ID != "u-2" || u.Email != "col@org.test" {
		t.Fatalf("unexpected user %#v", u)
	}

	list, err := c.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 users, got %d", len(list))
	}

	if err := c.DeleteUser(ctx, "u-2"); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if err := c.UpdatePassword(ctx, "u-1", "abcdef"); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}
	if err := c.DeleteUser(ctx, "missing"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_AdminRequiresServiceKey(t *testing.T) {
	c, _ := NewClient(Config{BaseURL: "http://localhost", AnonKey: "anon"})
	if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
