package messages

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/realtime"
)

type testRepo struct {
	items []Message
}

func (r *testRepo) Append(ctx context.Context, m Message) error {
	r.items = append(r.items, m)
	return nil
}

func (r *testRepo) ListByClient(ctx context.Context, clientID string) ([]Message, error) {
	out := make([]Message, 0)
	for _, m := range r.items {
		if m.ClientID == clientID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	kept := r.items[:0]
	n := 0
	for _, m := range r.items {
		if m.UserID == userID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.items = kept
	return n, nil
}

// testBus entrega en memoria y avisa cuando hay un suscriptor.
type testBus struct {
	mu         sync.Mutex
	subs       map[string][]chan realtime.Event
	published  []realtime.Event
	subscribed chan string
	failPub    bool
}

func newTestBus() *testBus {
	return &testBus{subs: map[string][]chan realtime.Event{}, subscribed: make(chan string, 4)}
}

func (b *testBus) Publish(ctx context.Context, evt realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPub {
		return errors.New("bus: down")
	}
	b.published = append(b.published, evt)
	for _, ch := range b.subs[evt.Topic] {
		ch <- evt
	}
	return nil
}

func (b *testBus) Subscribe(ctx context.Context, topic string) (<-chan realtime.Event, error) {
	ch := make(chan realtime.Event, 8)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	b.subscribed <- topic
	return ch, nil
}

type testAuthors map[string]string

func (a testAuthors) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		out[id] = a[id]
	}
	return out, nil
}

var (
	admin  = auth.Session{UserID: "admin-1", OrganizationID: "org-1", Role: auth.RoleAdmin}
	reader = auth.Session{UserID: "col-1", OrganizationID: "org-1", Role: auth.RoleCollaborator}
)

func newTestService() (*Service, *testRepo, *testBus) {
	repo := &testRepo{}
	bus := newTestBus()
	svc := NewService(repo, Deps{Bus: bus, Authors: testAuthors{"admin-1": "admin@org.test"}})
	return svc, repo, bus
}

func TestService_Post_StaffAndClientPaths(t *testing.T) {
	svc, _, bus := newTestService()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base }
	staffMsg, err := svc.Post(ctx, admin, "c1", " Hola Ana ")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if staffMsg.IsClient || staffMsg.UserID != "admin-1" || staffMsg.Text != "Hola Ana" {
		t.Fatalf("unexpected staff message %#v", staffMsg)
	}

	svc.now = func() time.Time { return base.Add(time.Minute) }
	clientMsg, err := svc.PostAsClient(ctx, "c1", "Gracias")
	if err != nil {
		t.Fatalf("PostAsClient returned error: %v", err)
	}
	if !clientMsg.IsClient || clientMsg.UserID != "" {
		t.Fatalf("client message must have no user id, got %#v", clientMsg)
	}
	if !(staffMsg.ID < clientMsg.ID) {
		t.Fatalf("ids must sort by creation: %s >= %s", staffMsg.ID, clientMsg.ID)
	}

	if len(bus.published) != 4 {
		t.Fatalf("expected each insert on both topics, got %d events", len(bus.published))
	}
	if bus.published[1].Topic != realtime.ClientTopic("c1") {
		t.Fatalf("unexpected topic %q", bus.published[1].Topic)
	}

	views, err := svc.ListWithAuthors(ctx, "c1")
	if err != nil {
		t.Fatalf("ListWithAuthors returned error: %v", err)
	}
	if len(views) != 2 || views[0].AuthorEmail != "admin@org.test" || views[1].AuthorEmail != "" {
		t.Fatalf("unexpected views %#v", views)
	}
}

func TestService_Post_RequiresPermission(t *testing.T) {
	svc, repo, _ := newTestService()

	if _, err := svc.Post(context.Background(), reader, "c1", "hola"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	allowed := reader
	allowed.Permissions = auth.PermissionSet{auth.PermSendMessages: true}
	if _, err := svc.Post(context.Background(), allowed, "c1", "hola"); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected one message stored")
	}
}

func TestService_Post_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.PostAsClient(context.Background(), "c1", "   "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank text, got %v", err)
	}
	if _, err := svc.PostAsClient(context.Background(), "c1", strings.Repeat("x", MaxTextLength+1)); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for long text, got %v", err)
	}
}

func TestService_Post_BusFailureIsNotFatal(t *testing.T) {
	svc, repo, bus := newTestService()
	bus.failPub = true

	if _, err := svc.PostAsClient(context.Background(), "c1", "hola"); err != nil {
		t.Fatalf("Post must succeed when the bus fails: %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("message must be stored")
	}
}

func TestService_Stream_YieldsNewMessages(t *testing.T) {
	svc, _, bus := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 1)
	go func() {
		for m, err := range svc.Stream(ctx, "c1") {
			if err != nil {
				return
			}
			got <- m
			return
		}
	}()

	select {
	case topic := <-bus.subscribed:
		if topic != realtime.ClientTopic("c1") {
			t.Fatalf("unexpected topic %q", topic)
		}
	case <-time.After(time.Second):
		t.Fatalf("stream did not subscribe")
	}

	posted, err := svc.PostAsClient(context.Background(), "c1", "nuevo")
	if err != nil {
		t.Fatalf("PostAsClient returned error: %v", err)
	}

	select {
	case m := <-got:
		if m.ID != posted.ID || m.Text != "nuevo" {
			t.Fatalf("unexpected streamed message %#v", m)
		}
	case <-time.After(time.Second):
		t.Fatalf("message was not streamed")
	}
}

func TestService_DeleteByUser(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Post(ctx, admin, "c1", "uno")
	_, _ = svc.PostAsClient(ctx, "c1", "dos")

	n, err := svc.DeleteByUser(ctx, "admin-1")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 deleted, got %d, %v", n, err)
	}
	items, _ := svc.List(ctx, "c1")
	if len(items) != 1 || !items[0].IsClient {
		t.Fatalf("client messages must remain, got %#v", items)
	}
}
