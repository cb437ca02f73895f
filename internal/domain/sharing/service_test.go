package sharing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"client-docs-portal/internal/domain/accesstokens"
	"client-docs-portal/internal/domain/documents"
	"client-docs-portal/internal/platform/apperr"

	"github.com/go-chi/chi/v5"
)

type tokenRepo struct {
	share map[string]accesstokens.ShareToken
}

func (r *tokenRepo) CreatePortal(ctx context.Context, t accesstokens.PortalToken) error { return nil }

func (r *tokenRepo) GetPortal(ctx context.Context, token string) (accesstokens.PortalToken, error) {
	return accesstokens.PortalToken{}, apperr.ErrNotFound
}

func (r *tokenRepo) CreateShare(ctx context.Context, t accesstokens.ShareToken) error {
	r.share[t.Token] = t
	return nil
}

func (r *tokenRepo) GetShare(ctx context.Context, token string) (accesstokens.ShareToken, error) {
	t, ok := r.share[token]
	if !ok {
		return accesstokens.ShareToken{}, apperr.ErrNotFound
	}
	return t, nil
}

type docSource map[string][]documents.DocumentRequest

func (d docSource) List(ctx context.Context, clientID string) ([]documents.DocumentRequest, error) {
	return d[clientID], nil
}

type names map[string]string

func (n names) ClientName(ctx context.Context, clientID string) (string, error) {
	return n[clientID], nil
}

// accesstokens resuelve con el reloj real: las fechas de los tests son relativas a él.
var now = time.Now().UTC().Truncate(time.Second)

func newTestService(docs docSource) (*Service, *tokenRepo) {
	repo := &tokenRepo{share: map[string]accesstokens.ShareToken{}}
	svc := NewService(accesstokens.NewService(repo, nil), docs, names{"ana": "Ana"})
	svc.now = func() time.Time { return now }
	return svc, repo
}

func anaDocs() docSource {
	return docSource{
		"ana": {
			{
				ID:   "d1",
				Name: "ID Card",
				Attachments: []documents.Attachment{
					{URL: "https://files.test/old.pdf", OriginalName: "old.pdf", State: documents.StateRejected, RejectionReason: "blurry"},
					{URL: "https://files.test/id.pdf", OriginalName: "id.pdf", State: documents.StateApproved},
				},
			},
		},
		"bob": {
			{ID: "d2", Name: "Payslip", Attachments: []documents.Attachment{{State: documents.StatePending}}},
		},
	}
}

func TestService_CreateLink_RequiresAllApproved(t *testing.T) {
	svc, _ := newTestService(anaDocs())

	if _, err := svc.CreateLink(context.Background(), "u1", "bob", LinkInput{}); !errors.Is(err, ErrNotFullyApproved) {
		t.Fatalf("expected ErrNotFullyApproved, got %v", err)
	}
	if _, err := svc.CreateLink(context.Background(), "u1", "nobody", LinkInput{}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("a client without documents cannot share, got %v", err)
	}
}

func TestService_CreateLink_Defaults(t *testing.T) {
	svc, _ := newTestService(anaDocs())

	tok, err := svc.CreateLink(context.Background(), "u1", "ana", LinkInput{})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if tok.AccessType != accesstokens.AccessDownload {
		t.Fatalf("expected download by default, got %s", tok.AccessType)
	}
	if !tok.ExpiresAt.Equal(now.Add(DefaultTTL)) {
		t.Fatalf("expected 30 day default, got %s", tok.ExpiresAt)
	}

	if _, err := svc.CreateLink(context.Background(), "u1", "ana", LinkInput{ExpiresAt: now}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for past expiry, got %v", err)
	}
}

func TestService_Resolve_OnlyApproved(t *testing.T) {
	svc, repo := newTestService(anaDocs())
	tok, _ := svc.CreateLink(context.Background(), "u1", "ana", LinkInput{AccessType: accesstokens.AccessView})

	sh, err := svc.Resolve(context.Background(), tok.Token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if sh.ClientName != "Ana" || len(sh.Documents) != 1 {
		t.Fatalf("unexpected shared view %#v", sh)
	}
	atts := sh.Documents[0].Attachments
	if len(atts) != 1 || atts[0].OriginalName != "id.pdf" {
		t.Fatalf("expected only the approved file, got %#v", atts)
	}

	if _, err := svc.File(context.Background(), tok.Token, "d1", 0); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("view links must not download, got %v", err)
	}

	repo.share["old"] = accesstokens.ShareToken{
		Token:      "old",
		ClientID:   "ana",
		AccessType: accesstokens.AccessDownload,
		ExpiresAt:  time.Now().Add(-time.Minute),
	}
	if _, err := svc.Resolve(context.Background(), "old"); !errors.Is(err, apperr.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestHandlers_ViewHidesDownload(t *testing.T) {
	svc, _ := newTestService(anaDocs())
	view, _ := svc.CreateLink(context.Background(), "u1", "ana", LinkInput{AccessType: accesstokens.AccessView})
	dl, _ := svc.CreateLink(context.Background(), "u1", "ana", LinkInput{AccessType: accesstokens.AccessDownload})

	r := chi.NewRouter()
	RegisterPublicRoutes(r, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared-docs/"+view.Token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); strings.Contains(body, "download_url") {
		t.Fatalf("view link exposes a download url: %s", body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared-docs/"+view.Token+"/files/d1/0", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for view download, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared-docs/"+dl.Token+"/files/d1/0", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "https://files.test/id.pdf" {
		t.Fatalf("expected redirect to approved file, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared-docs/"+dl.Token+"/files/d1/1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("rejected files are not addressable, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared-docs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", rec.Code)
	}
}

func TestParseExpiry(t *testing.T) {
	got, err := parseExpiry("2025-07-01")
	if err != nil {
		t.Fatalf("parseExpiry returned error: %v", err)
	}
	if got.Day() != 1 || got.Hour() != 23 {
		t.Fatalf("expected end of day, got %s", got)
	}
	if _, err := parseExpiry("mañana"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
