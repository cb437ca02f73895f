package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"client-docs-portal/internal/platform/apperr"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID         map[string]DocumentRequest
	beforeUpdate func()
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]DocumentRequest{}}
}

func (r *testRepo) count(clientID string) int {
	n := 0
	for _, d := range r.byID {
		if d.ClientID == clientID {
			n++
		}
	}
	return n
}

func (r *testRepo) Append(ctx context.Context, d DocumentRequest) (DocumentRequest, error) {
	d.Order = r.count(d.ClientID)
	r.byID[d.ID] = d
	return d, nil
}

func (r *testRepo) CreateMany(ctx context.Context, ds []DocumentRequest) error {
	for _, d := range ds {
		r.byID[d.ID] = d
	}
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (DocumentRequest, error) {
	d, ok := r.byID[id]
	if !ok {
		return DocumentRequest{}, apperr.ErrNotFound
	}
	return d, nil
}

func (r *testRepo) ListByClient(ctx context.Context, clientID string) ([]DocumentRequest, error) {
	out := make([]DocumentRequest, 0)
	for _, d := range r.byID {
		if d.ClientID == clientID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *testRepo) Rename(ctx context.Context, id, name string, at time.Time) error {
	d, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	d.Name = name
	d.UpdatedAt = at
	r.byID[id] = d
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) SetOrder(ctx context.Context, clientID string, orderedIDs []string) error {
	for i, id := range orderedIDs {
		d, ok := r.byID[id]
		if !ok || d.ClientID != clientID {
			return apperr.ErrNotFound
		}
		d.Order = i
		r.byID[id] = d
	}
	return nil
}

func (r *testRepo) UpdateAttachments(ctx context.Context, id string, at time.Time, fn func([]Attachment) ([]Attachment, error)) (DocumentRequest, error) {
	if hook := r.beforeUpdate; hook != nil {
		// una sola vez: el hook puede volver a escribir el documento
		r.beforeUpdate = nil
		hook()
	}
	d, ok := r.byID[id]
	if !ok {
		return DocumentRequest{}, apperr.ErrNotFound
	}
	next, err := fn(append([]Attachment(nil), d.Attachments...))
	if err != nil {
		return DocumentRequest{}, err
	}
	d.Attachments = next
	d.UpdatedAt = at
	r.byID[id] = d
	return d, nil
}

type testStore struct {
	objects    map[string][]byte
	failRemove bool
	removed    []string
	onRemove   func()
}

func newTestStore() *testStore { return &testStore{objects: map[string][]byte{}} }

func (s *testStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = b
	return nil
}

func (s *testStore) PublicURL(key string) string { return "https://files.test/" + key }

func (s *testStore) Remove(ctx context.Context, keys ...string) error {
	if s.onRemove != nil {
		s.onRemove()
	}
	if s.failRemove {
		return errors.New("store: unavailable")
	}
	for _, k := range keys {
		delete(s.objects, k)
		s.removed = append(s.removed, k)
	}
	return nil
}

type testTemplates map[string][]string

func (t testTemplates) DocumentNames(ctx context.Context, userID, templateID string) ([]string, error) {
	names, ok := t[templateID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return names, nil
}

func newTestService(t *testing.T) (*Service, *testRepo, *testStore) {
	t.Helper()
	repo := newTestRepo()
	store := newTestStore()
	svc := NewService(repo, Deps{
		Store: store,
		Templates: testTemplates{
			"basic": {"ID Card", "Payslip", "ID Card", "Bank Statement"},
		},
	})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, repo, store
}

func upload(t *testing.T, svc *Service, docID, name string) Attachment {
	t.Helper()
	att, err := svc.UploadAttachment(context.Background(), docID, FileUpload{
		Name:        name,
		ContentType: "application/pdf",
		Body:        bytes.NewBufferString("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("UploadAttachment(%q) returned error: %v", name, err)
	}
	return att
}

func names(docs []DocumentRequest) string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Name)
	}
	return strings.Join(out, ",")
}

// -------------------------
// Tests
// -------------------------

func TestService_Add_AppendsAtEnd_DefaultName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Add(ctx, "c1", "ID Card")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	b, err := svc.Add(ctx, "c1", "   ")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	if a.Order != 0 || b.Order != 1 {
		t.Fatalf("expected orders 0,1 got %d,%d", a.Order, b.Order)
	}
	if b.Name != DefaultName {
		t.Fatalf("expected default name, got %q", b.Name)
	}
	if len(a.Attachments) != 0 || Status(a) != StatePending {
		t.Fatalf("new document must be pending without attachments")
	}
}

func TestService_ImportTemplate_NeverDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "c1", "Payslip"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	n, err := svc.ImportTemplate(ctx, "u1", "c1", "basic")
	if err != nil {
		t.Fatalf("ImportTemplate returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	docs, _ := svc.List(ctx, "c1")
	if got := names(docs); got != "Payslip,ID Card,Bank Statement" {
		t.Fatalf("unexpected documents: %s", got)
	}
	for i, d := range docs {
		if d.Order != i {
			t.Fatalf("expected contiguous order, doc %q has %d", d.Name, d.Order)
		}
	}

	n, err = svc.ImportTemplate(ctx, "u1", "c1", "basic")
	if !errors.Is(err, apperr.ErrNothingToImport) || n != 0 {
		t.Fatalf("expected ErrNothingToImport with 0, got %d, %v", n, err)
	}
}

func TestService_ImportTemplate_IsCaseSensitive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "c1", "id card"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	n, err := svc.ImportTemplate(ctx, "u1", "c1", "basic")
	if err != nil {
		t.Fatalf("ImportTemplate returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 inserted, got %d", n)
	}
}

func TestService_ImportTemplate_UnknownTemplate(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ImportTemplate(context.Background(), "u1", "c1", "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Reorder_UpThenDownRestores(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		if _, err := svc.Add(ctx, "c1", n); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	docs, err := svc.Reorder(ctx, "c1", 2, Up)
	if err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if got := names(docs); got != "A,C,B" {
		t.Fatalf("expected A,C,B got %s", got)
	}

	docs, err = svc.Reorder(ctx, "c1", 1, Down)
	if err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if got := names(docs); got != "A,B,C" {
		t.Fatalf("expected A,B,C got %s", got)
	}
}

func TestService_Reorder_BoundariesAreNoop(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B"} {
		if _, err := svc.Add(ctx, "c1", n); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	docs, err := svc.Reorder(ctx, "c1", 0, Up)
	if err != nil || names(docs) != "A,B" {
		t.Fatalf("expected no-op at top, got %s, %v", names(docs), err)
	}
	docs, err = svc.Reorder(ctx, "c1", 1, Down)
	if err != nil || names(docs) != "A,B" {
		t.Fatalf("expected no-op at bottom, got %s, %v", names(docs), err)
	}

	if _, err := svc.Reorder(ctx, "c1", 5, Up); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for out of range index, got %v", err)
	}
	if _, err := svc.Reorder(ctx, "c1", 0, Direction("left")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad direction, got %v", err)
	}
}

func TestService_UploadAttachment_SanitizesKey_KeepsDisplayName(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")

	att := upload(t, svc, d.ID, "cédula frente.pdf")

	wantKey := "c1/" + d.ID + "/1740830400000_cedula_frente.pdf"
	if att.Key != wantKey {
		t.Fatalf("expected key %q, got %q", wantKey, att.Key)
	}
	if att.OriginalName != "cédula frente.pdf" {
		t.Fatalf("display name must stay unsanitized, got %q", att.OriginalName)
	}
	if att.State != StatePending {
		t.Fatalf("expected pending, got %s", att.State)
	}
	if _, ok := store.objects[wantKey]; !ok {
		t.Fatalf("expected object stored under %q", wantKey)
	}
	if att.URL != "https://files.test/"+wantKey {
		t.Fatalf("unexpected url %q", att.URL)
	}
}

func TestService_ApprovedAttachment_BlocksUploadAndDelete(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")
	upload(t, svc, d.ID, "id.pdf")

	if _, err := svc.Approve(ctx, d.ID, 0); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	_, err := svc.UploadAttachment(ctx, d.ID, FileUpload{Name: "id2.pdf", Body: strings.NewReader("x")})
	if !errors.Is(err, apperr.ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved on upload, got %v", err)
	}
	if len(store.objects) != 1 {
		t.Fatalf("rejected upload must not leave files, got %d objects", len(store.objects))
	}

	if err := svc.DeleteAttachment(ctx, d.ID, 0); !errors.Is(err, apperr.ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved on delete, got %v", err)
	}

	got, _ := svc.Get(ctx, d.ID)
	if len(got.Attachments) != 1 || got.Attachments[0].State != StateApproved {
		t.Fatalf("approved attachment must be untouched: %#v", got.Attachments)
	}
}

func TestService_DeleteAttachment_ApprovalInBetweenKeepsFile(t *testing.T) {
	svc, repo, store := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")
	att := upload(t, svc, d.ID, "id.pdf")

	// la aprobación llega entre la lectura y la escritura atómica del borrado
	repo.beforeUpdate = func() {
		if _, err := svc.Approve(ctx, d.ID, 0); err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
	}
	store.onRemove = func() { t.Fatalf("store must not be touched when the delete is refused") }

	if err := svc.DeleteAttachment(ctx, d.ID, 0); !errors.Is(err, apperr.ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved, got %v", err)
	}

	got, _ := svc.Get(ctx, d.ID)
	if len(got.Attachments) != 1 || got.Attachments[0].State != StateApproved {
		t.Fatalf("expected approved attachment kept, got %#v", got.Attachments)
	}
	if _, ok := store.objects[att.Key]; !ok {
		t.Fatalf("approved attachment lost its stored object %q", att.Key)
	}
}

func TestService_DeleteAttachment_RemovesFileAfterRecord(t *testing.T) {
	svc, repo, store := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")
	att := upload(t, svc, d.ID, "a.pdf")

	store.onRemove = func() {
		if got := repo.byID[d.ID]; len(got.Attachments) != 0 {
			t.Fatalf("file removed while the record still lists it: %#v", got.Attachments)
		}
	}
	if err := svc.DeleteAttachment(ctx, d.ID, 0); err != nil {
		t.Fatalf("DeleteAttachment returned error: %v", err)
	}
	if _, ok := store.objects[att.Key]; ok {
		t.Fatalf("expected object %q removed", att.Key)
	}
}

func TestService_DeleteAttachment_StoreFailureIsNotFatal(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")
	upload(t, svc, d.ID, "a.pdf")

	store.failRemove = true
	if err := svc.DeleteAttachment(ctx, d.ID, 0); err != nil {
		t.Fatalf("DeleteAttachment returned error: %v", err)
	}
	got, _ := svc.Get(ctx, d.ID)
	if len(got.Attachments) != 0 {
		t.Fatalf("expected record removed, got %d attachments", len(got.Attachments))
	}

	if err := svc.DeleteAttachment(ctx, d.ID, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing index, got %v", err)
	}
}

func TestService_Reject_RequiresReason(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")
	upload(t, svc, d.ID, "a.pdf")

	if _, err := svc.Reject(ctx, d.ID, 0, "  "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	got, _ := svc.Get(ctx, d.ID)
	if got.Attachments[0].State != StatePending {
		t.Fatalf("blank reason must not change state")
	}
}

// a.pdf se rechaza por borroso, el cliente sube b.pdf y se aprueba.
func TestService_Scenario_RejectThenReupload(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")
	upload(t, svc, d.ID, "a.pdf")

	d, err := svc.Reject(ctx, d.ID, 0, "blurry")
	if err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if Status(d) != StateRejected || d.Attachments[0].RejectionReason != "blurry" {
		t.Fatalf("expected rejected with reason, got %#v", d.Attachments[0])
	}

	if _, err := svc.Approve(ctx, d.ID, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition re-reviewing a rejected file, got %v", err)
	}

	upload(t, svc, d.ID, "b.pdf")
	d, err = svc.Approve(ctx, d.ID, 1)
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if Status(d) != StateApproved {
		t.Fatalf("expected approved aggregate, got %s", Status(d))
	}

	rv, err := svc.ReviewStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("ReviewStatus returned error: %v", err)
	}
	if !rv.AllApproved {
		t.Fatalf("expected all approved")
	}
	want := Stats{Total: 1, Uploaded: 1, Approved: 1, Rejected: 1}
	if rv.Stats != want {
		t.Fatalf("expected %+v, got %+v", want, rv.Stats)
	}
}

func TestService_Remove_CleansFiles(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID Card")
	upload(t, svc, d.ID, "a.pdf")
	if _, err := svc.Approve(ctx, d.ID, 0); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	if err := svc.Remove(ctx, d.ID); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := svc.Get(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected files removed, %d left", len(store.objects))
	}
}

func TestService_Rename(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "c1", "ID")

	got, err := svc.Rename(ctx, d.ID, " ID Card ")
	if err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}
	if got.Name != "ID Card" {
		t.Fatalf("expected trimmed name, got %q", got.Name)
	}
	if _, err := svc.Rename(ctx, d.ID, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.Rename(ctx, "nope", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
