package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"client-docs-portal/internal/router"
)

const (
	adminID = "admin-1"
	orgID   = "org-1"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: nil,
		RateLimit:    router.RateLimit{PerSecond: 1000, Burst: 1000},
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_Health(t *testing.T) {
	ts := newServer(t)

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", st, body)
	}
}

// Ana pide su DNI, lo sube por el portal, se aprueba y se comparte.
func TestHTTP_EndToEnd_UploadApproveShare(t *testing.T) {
	ts := newServer(t)

	clientID := createClient(t, ts.URL, "Ana", "ana@example.com")
	docID := addDocument(t, ts.URL, clientID, "ID Card")
	token := issuePortalToken(t, ts.URL, clientID)

	// portal: el cliente ve su documento pendiente
	{
		st, body := doReq(t, ts.URL, "GET", "/client-access/"+token, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 opening portal, got %d body=%s", st, body)
		}
		var out struct {
			Cliente struct {
				Nombre string `json:"nombre"`
			} `json:"cliente"`
			Documentos []struct {
				ID     string `json:"id"`
				Nombre string `json:"nombre"`
				Estado string `json:"estado"`
			} `json:"documentos"`
		}
		mustJSON(t, body, &out)
		if out.Cliente.Nombre != "Ana" || len(out.Documentos) != 1 || out.Documentos[0].ID != docID {
			t.Fatalf("unexpected portal overview: %+v", out)
		}
		if out.Documentos[0].Estado != "pending" {
			t.Fatalf("expected pending document, got %q", out.Documentos[0].Estado)
		}
	}

	// sin archivos no se puede compartir
	{
		st, _ := doReq(t, ts.URL, "POST", "/clients/"+clientID+"/share-links", adminID, map[string]any{})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 sharing before approval, got %d", st)
		}
	}

	st, body := uploadFile(t, ts.URL, "/client-access/"+token+"/documents/"+docID+"/attachments", "dni frente.pdf", "%PDF-1.4")
	if st != http.StatusCreated {
		t.Fatalf("expected 201 portal upload, got %d body=%s", st, body)
	}

	approve(t, ts.URL, docID, 0)

	// ya aprobado: ni upload ni delete
	{
		st, _ := uploadFile(t, ts.URL, "/client-access/"+token+"/documents/"+docID+"/attachments", "otro.pdf", "x")
		if st != http.StatusConflict {
			t.Fatalf("expected 409 uploading over approved, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "DELETE", "/client-access/"+token+"/documents/"+docID+"/attachments/0", "", nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 deleting approved, got %d", st)
		}
	}

	share := createShareLink(t, ts.URL, clientID, "download")
	if !strings.HasSuffix(share.URL, "/shared-docs/"+share.Token) {
		t.Fatalf("unexpected share url %q", share.URL)
	}

	shared := resolveShared(t, ts.URL, share.Token)
	if shared.Cliente != "Ana" || len(shared.Documents) != 1 {
		t.Fatalf("unexpected shared docs: %+v", shared)
	}
	files := shared.Documents[0].Archivos
	if len(files) != 1 || files[0].Nombre != "dni frente.pdf" {
		t.Fatalf("expected the approved file, got %+v", files)
	}
	if files[0].DownloadURL == "" {
		t.Fatalf("download link must expose download_url")
	}

	st, resp := noRedirect(t, ts.URL+files[0].DownloadURL)
	if st != http.StatusFound || !strings.Contains(resp.Get("Location"), "dni_frente.pdf") {
		t.Fatalf("expected redirect to stored file, got %d location=%q", st, resp.Get("Location"))
	}
}

// a.pdf se rechaza por borroso, el cliente lo borra, sube b.pdf y se aprueba.
func TestHTTP_EndToEnd_RejectThenReplace(t *testing.T) {
	ts := newServer(t)

	clientID := createClient(t, ts.URL, "Bruno", "bruno@example.com")
	docID := addDocument(t, ts.URL, clientID, "Recibo de sueldo")
	token := issuePortalToken(t, ts.URL, clientID)
	path := "/client-access/" + token + "/documents/" + docID + "/attachments"

	if st, body := uploadFile(t, ts.URL, path, "a.pdf", "a"); st != http.StatusCreated {
		t.Fatalf("upload a.pdf: %d %s", st, body)
	}

	// rechazo sin motivo no vale
	{
		st, _ := doReq(t, ts.URL, "POST", "/documents/"+docID+"/attachments/0/reject", adminID, map[string]any{"reason": "  "})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 rejecting without reason, got %d", st)
		}
	}

	{
		st, body := doReq(t, ts.URL, "POST", "/documents/"+docID+"/attachments/0/reject", adminID, map[string]any{"reason": "blurry"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 reject, got %d body=%s", st, body)
		}
		var doc struct {
			Estado   string `json:"estado"`
			Archivos []struct {
				Estado string `json:"estado"`
				Motivo string `json:"motivo_rechazo"`
			} `json:"archivos"`
		}
		mustJSON(t, body, &doc)
		if doc.Estado != "rejected" || doc.Archivos[0].Motivo != "blurry" {
			t.Fatalf("unexpected rejected doc: %+v", doc)
		}
	}

	stats := reviewStatus(t, ts.URL, clientID)
	if stats.AllApproved || stats.Stats.Rejected != 1 || stats.Stats.Uploaded != 1 {
		t.Fatalf("unexpected stats after reject: %+v", stats)
	}

	// no aprobado: el cliente puede borrarlo y subir otro
	if st, body := doReq(t, ts.URL, "DELETE", path+"/0", "", nil); st != http.StatusNoContent {
		t.Fatalf("expected 204 deleting rejected file, got %d body=%s", st, body)
	}
	if st, body := uploadFile(t, ts.URL, path, "b.pdf", "b"); st != http.StatusCreated {
		t.Fatalf("upload b.pdf: %d %s", st, body)
	}
	approve(t, ts.URL, docID, 0)

	stats = reviewStatus(t, ts.URL, clientID)
	if !stats.AllApproved || stats.Stats.Approved != 1 || stats.Stats.Rejected != 0 || stats.Stats.Total != 1 {
		t.Fatalf("unexpected stats after approve: %+v", stats)
	}

	// el link sólo muestra b.pdf
	share := createShareLink(t, ts.URL, clientID, "download")
	shared := resolveShared(t, ts.URL, share.Token)
	files := shared.Documents[0].Archivos
	if len(files) != 1 || files[0].Nombre != "b.pdf" {
		t.Fatalf("expected only b.pdf shared, got %+v", files)
	}
}

func TestHTTP_ViewLinkHidesDownload(t *testing.T) {
	ts := newServer(t)

	clientID := createClient(t, ts.URL, "Carla", "carla@example.com")
	docID := addDocument(t, ts.URL, clientID, "Pasaporte")
	if st, body := uploadFile(t, ts.URL, "/documents/"+docID+"/attachments", "pasaporte.jpg", "jpg"); st != http.StatusCreated {
		t.Fatalf("staff upload: %d %s", st, body)
	}
	approve(t, ts.URL, docID, 0)

	share := createShareLink(t, ts.URL, clientID, "view")
	shared := resolveShared(t, ts.URL, share.Token)
	if shared.AccessType != "view" {
		t.Fatalf("expected view link, got %q", shared.AccessType)
	}
	f := shared.Documents[0].Archivos[0]
	if f.DownloadURL != "" || f.ViewURL == "" {
		t.Fatalf("view link must expose only view_url: %+v", f)
	}

	st, _ := noRedirect(t, fmt.Sprintf("%s/shared-docs/%s/files/%s/0", ts.URL, share.Token, docID))
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 downloading through view link, got %d", st)
	}
}

func TestHTTP_SharedDocs_UnknownAndExpired(t *testing.T) {
	ts := newServer(t)

	st, _ := doReq(t, ts.URL, "GET", "/shared-docs/does-not-exist", "", nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", st)
	}

	clientID := createClient(t, ts.URL, "Dario", "dario@example.com")
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	st, _ = doReq(t, ts.URL, "POST", "/clients/"+clientID+"/share-links", adminID, map[string]any{"expires_at": past})
	if st != http.StatusBadRequest && st != http.StatusConflict {
		t.Fatalf("expected past expiry to be refused, got %d", st)
	}
}

func TestHTTP_PortalMessagesAndUnread(t *testing.T) {
	ts := newServer(t)

	clientID := createClient(t, ts.URL, "Elena", "elena@example.com")
	token := issuePortalToken(t, ts.URL, clientID)

	st, body := doReq(t, ts.URL, "POST", "/client-access/"+token+"/messages", "", map[string]any{"text": "hola, ya subí todo"})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 client message, got %d body=%s", st, body)
	}

	var sum struct {
		HasAny  bool `json:"has_any"`
		Clients []struct {
			ClientID    string `json:"client_id"`
			UnreadCount int    `json:"unread_count"`
		} `json:"clients"`
	}
	st, body = doReq(t, ts.URL, "GET", "/notifications", adminID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 notifications, got %d body=%s", st, body)
	}
	mustJSON(t, body, &sum)
	if !sum.HasAny {
		t.Fatalf("expected unread client message, got %+v", sum)
	}

	// GET no marca leído; POST sí
	if st, _ := doReq(t, ts.URL, "POST", "/notifications/"+clientID+"/read", adminID, nil); st != http.StatusNoContent {
		t.Fatalf("expected 204 mark read, got %d", st)
	}
	_, body = doReq(t, ts.URL, "GET", "/notifications", adminID, nil)
	mustJSON(t, body, &sum)
	if sum.HasAny {
		t.Fatalf("expected no unread after mark read, got %+v", sum)
	}

	// staff responde: el portal lo ve como no leído
	if st, body := doReq(t, ts.URL, "POST", "/clients/"+clientID+"/messages", adminID, map[string]any{"text": "gracias"}); st != http.StatusCreated {
		t.Fatalf("expected 201 staff message, got %d body=%s", st, body)
	}
	var unread struct {
		HasUnread bool `json:"has_unread"`
	}
	_, body = doReq(t, ts.URL, "GET", "/client-access/"+token+"/unread", "", nil)
	mustJSON(t, body, &unread)
	if !unread.HasUnread {
		t.Fatalf("expected portal unread after staff reply")
	}

	var msgs []struct {
		IsClient bool   `json:"is_client"`
		Text     string `json:"text"`
	}
	_, body = doReq(t, ts.URL, "GET", "/client-access/"+token+"/messages", "", nil)
	mustJSON(t, body, &msgs)
	if len(msgs) != 2 || !msgs[0].IsClient || msgs[1].IsClient {
		t.Fatalf("expected client then staff message, got %+v", msgs)
	}
}

func TestHTTP_StaffRoutesRequireSession(t *testing.T) {
	ts := newServer(t)

	st, _ := doReq(t, ts.URL, "GET", "/clients", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", st)
	}

	clientID := createClient(t, ts.URL, "Fede", "fede@example.com")

	req, _ := http.NewRequest("GET", ts.URL+"/clients/"+clientID, nil)
	req.Header.Set("X-Debug-User-ID", "intruder")
	req.Header.Set("X-Debug-Org-ID", "org-2")
	req.Header.Set("X-Debug-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 across organizations, got %d", resp.StatusCode)
	}
}

// ---- helpers ----

type shareLink struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type sharedDocs struct {
	Cliente    string `json:"cliente"`
	AccessType string `json:"access_type"`
	Documents  []struct {
		ID       string `json:"id"`
		Archivos []struct {
			Nombre      string `json:"nombre"`
			ViewURL     string `json:"view_url"`
			DownloadURL string `json:"download_url"`
		} `json:"archivos"`
	} `json:"documents"`
}

type reviewStats struct {
	AllApproved bool `json:"all_approved"`
	Stats       struct {
		Total    int `json:"total"`
		Uploaded int `json:"subidos"`
		Approved int `json:"aprobados"`
		Rejected int `json:"rechazados"`
	} `json:"stats"`
}

func createClient(t *testing.T, baseURL, name, email string) string {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", "/clients", adminID, map[string]any{"name": name, "email": email})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 creating client, got %d body=%s", st, body)
	}
	var out struct {
		ID string `json:"id"`
	}
	mustJSON(t, body, &out)
	return out.ID
}

func addDocument(t *testing.T, baseURL, clientID, name string) string {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", "/clients/"+clientID+"/documents", adminID, map[string]any{"name": name})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 adding document, got %d body=%s", st, body)
	}
	var out struct {
		ID string `json:"id"`
	}
	mustJSON(t, body, &out)
	return out.ID
}

func issuePortalToken(t *testing.T, baseURL, clientID string) string {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", "/clients/"+clientID+"/portal-tokens", adminID, nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 issuing portal token, got %d body=%s", st, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	mustJSON(t, body, &out)
	return out.Token
}

func approve(t *testing.T, baseURL, docID string, index int) {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", fmt.Sprintf("/documents/%s/attachments/%d/approve", docID, index), adminID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d body=%s", st, body)
	}
}

func createShareLink(t *testing.T, baseURL, clientID, accessType string) shareLink {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", "/clients/"+clientID+"/share-links", adminID, map[string]any{"access_type": accessType})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 creating share link, got %d body=%s", st, body)
	}
	var out shareLink
	mustJSON(t, body, &out)
	return out
}

func resolveShared(t *testing.T, baseURL, token string) sharedDocs {
	t.Helper()
	st, body := doReq(t, baseURL, "GET", "/shared-docs/"+token, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 resolving share, got %d body=%s", st, body)
	}
	var out sharedDocs
	mustJSON(t, body, &out)
	return out
}

func reviewStatus(t *testing.T, baseURL, clientID string) reviewStats {
	t.Helper()
	st, body := doReq(t, baseURL, "GET", "/clients/"+clientID+"/documents/status", adminID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 review status, got %d body=%s", st, body)
	}
	var out reviewStats
	mustJSON(t, body, &out)
	return out
}

func uploadFile(t *testing.T, baseURL, path, filename, content string) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req, err := http.NewRequest("POST", baseURL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setStaff(req, adminID)
	return do(t, req)
}

func noRedirect(t *testing.T, url string) (int, http.Header) {
	t.Helper()
	c := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := c.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setStaff(req, debugUserID)
	return do(t, req)
}

// setStaff arma una sesión dev de admin de org-1. Vacío = request anónimo (portal).
func setStaff(req *http.Request, userID string) {
	if userID == "" {
		return
	}
	req.Header.Set("X-Debug-User-ID", userID)
	req.Header.Set("X-Debug-Org-ID", orgID)
	req.Header.Set("X-Debug-Role", "admin")
}

func do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func mustJSON(t *testing.T, b []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, string(b))
	}
}
