package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/realtime"
)

type testMessage struct {
	clientID   string
	fromClient bool
	at         time.Time
}

type testRepo struct {
	messages   []testMessage
	markers    map[string]time.Time
	afterCount func()
}

func newTestRepo() *testRepo { return &testRepo{markers: map[string]time.Time{}} }

func (r *testRepo) MarkRead(ctx context.Context, viewer, clientID string, at time.Time) error {
	k := viewer + "|" + clientID
	if cur, ok := r.markers[k]; ok && cur.After(at) {
		return nil
	}
	r.markers[k] = at
	return nil
}

func (r *testRepo) UnreadCounts(ctx context.Context, viewer string, fromClient bool, clientIDs []string) (map[string]int, error) {
	want := map[string]bool{}
	for _, id := range clientIDs {
		want[id] = true
	}
	out := map[string]int{}
	for _, m := range r.messages {
		if !want[m.clientID] || m.fromClient != fromClient {
			continue
		}
		if seen, ok := r.markers[viewer+"|"+m.clientID]; ok && !m.at.After(seen) {
			continue
		}
		out[m.clientID]++
	}
	if hook := r.afterCount; hook != nil {
		r.afterCount = nil
		hook()
	}
	return out, nil
}

type testClients []string

func (c testClients) ClientIDs(ctx context.Context, sess auth.Session) ([]string, error) {
	return c, nil
}

type testBus struct {
	ch         chan realtime.Event
	subscribed chan struct{}
}

func (b *testBus) Publish(ctx context.Context, evt realtime.Event) error {
	b.ch <- evt
	return nil
}

func (b *testBus) Subscribe(ctx context.Context, topic string) (<-chan realtime.Event, error) {
	close(b.subscribed)
	return b.ch, nil
}

// lossyBus pierde lo publicado sin suscriptor, como un pub/sub real.
type lossyBus struct {
	mu  sync.Mutex
	sub chan realtime.Event
}

func (b *lossyBus) Publish(ctx context.Context, evt realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		select {
		case b.sub <- evt:
		default:
		}
	}
	return nil
}

func (b *lossyBus) Subscribe(ctx context.Context, topic string) (<-chan realtime.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sub = make(chan realtime.Event, 4)
	return b.sub, nil
}

var staff = auth.Session{UserID: "col-1", OrganizationID: "org-1", Role: auth.RoleCollaborator}

func TestService_StaffSummary_CountsClientMessagesAfterMarker(t *testing.T) {
	repo := newTestRepo()
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	repo.messages = []testMessage{
		{"c1", true, base},
		{"c1", true, base.Add(2 * time.Minute)},
		{"c1", false, base.Add(3 * time.Minute)}, // del staff: no cuenta
		{"c2", true, base},
	}
	svc := NewService(repo, testClients{"c1", "c2", "c3"}, nil)

	sum, err := svc.StaffSummary(context.Background(), staff)
	if err != nil {
		t.Fatalf("StaffSummary returned error: %v", err)
	}
	if !sum.HasAny || len(sum.Clients) != 3 {
		t.Fatalf("unexpected summary %#v", sum)
	}
	if sum.Clients[0].UnreadCount != 2 || sum.Clients[1].UnreadCount != 1 || sum.Clients[2].HasUnread {
		t.Fatalf("unexpected counts %#v", sum.Clients)
	}

	svc.now = func() time.Time { return base.Add(time.Minute) }
	if err := svc.MarkRead(context.Background(), StaffViewer("col-1"), "c1"); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	svc.now = func() time.Time { return base.Add(time.Hour) }
	if err := svc.MarkRead(context.Background(), StaffViewer("col-1"), "c2"); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}

	sum, _ = svc.StaffSummary(context.Background(), staff)
	if sum.Clients[0].UnreadCount != 1 || sum.Clients[1].HasUnread {
		t.Fatalf("expected counts after markers, got %#v", sum.Clients)
	}

	// el marcador es por viewer
	other := staff
	other.UserID = "col-2"
	sum, _ = svc.StaffSummary(context.Background(), other)
	if sum.Clients[0].UnreadCount != 2 {
		t.Fatalf("markers must not be shared between viewers, got %#v", sum.Clients)
	}
}

func TestService_ClientUnread_CountsStaffMessages(t *testing.T) {
	repo := newTestRepo()
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	repo.messages = []testMessage{
		{"c1", false, base},
		{"c1", true, base.Add(time.Minute)},
	}
	svc := NewService(repo, testClients{}, nil)

	cu, err := svc.ClientUnread(context.Background(), "tok", "c1")
	if err != nil {
		t.Fatalf("ClientUnread returned error: %v", err)
	}
	if !cu.HasUnread || cu.UnreadCount != 1 {
		t.Fatalf("unexpected %#v", cu)
	}

	// leer (GET) no marca nada
	cu, _ = svc.ClientUnread(context.Background(), "tok", "c1")
	if cu.UnreadCount != 1 {
		t.Fatalf("reading must not acknowledge")
	}

	svc.now = func() time.Time { return base.Add(time.Hour) }
	if err := svc.MarkRead(context.Background(), PortalViewer("tok"), "c1"); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	cu, _ = svc.ClientUnread(context.Background(), "tok", "c1")
	if cu.HasUnread {
		t.Fatalf("expected no unread after mark read")
	}
}

func TestService_StaffSummary_RequiresStaff(t *testing.T) {
	svc := NewService(newTestRepo(), testClients{}, nil)
	_, err := svc.StaffSummary(context.Background(), auth.Session{UserID: "u"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_WatchClient_RecomputesOnEvent(t *testing.T) {
	repo := newTestRepo()
	bus := &testBus{ch: make(chan realtime.Event, 1), subscribed: make(chan struct{})}
	svc := NewService(repo, testClients{}, bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan ClientUnread, 2)
	go func() {
		n := 0
		for cu, err := range svc.WatchClient(ctx, "tok", "c1") {
			if err != nil {
				return
			}
			got <- cu
			if n++; n == 2 {
				return
			}
		}
	}()

	first := <-got
	if first.HasUnread {
		t.Fatalf("expected nothing unread initially")
	}

	<-bus.subscribed
	repo.messages = append(repo.messages, testMessage{"c1", false, time.Now()})
	_ = bus.Publish(ctx, realtime.Event{Topic: realtime.ClientTopic("c1"), ClientID: "c1"})

	select {
	case second := <-got:
		if second.UnreadCount != 1 {
			t.Fatalf("expected recomputed count 1, got %#v", second)
		}
	case <-time.After(time.Second):
		t.Fatalf("watch did not recompute")
	}
}

func TestService_WatchClient_InsertDuringFirstComputeIsNotLost(t *testing.T) {
	repo := newTestRepo()
	bus := &lossyBus{}
	svc := NewService(repo, testClients{}, bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// el insert llega justo después de que el primer cálculo leyó los mensajes
	repo.afterCount = func() {
		repo.messages = append(repo.messages, testMessage{"c1", false, time.Now()})
		_ = bus.Publish(ctx, realtime.Event{Topic: realtime.ClientTopic("c1"), ClientID: "c1"})
	}

	got := make(chan ClientUnread, 2)
	go func() {
		n := 0
		for cu, err := range svc.WatchClient(ctx, "tok", "c1") {
			if err != nil {
				return
			}
			got <- cu
			if n++; n == 2 {
				return
			}
		}
	}()

	if first := <-got; first.HasUnread {
		t.Fatalf("expected nothing unread in the first summary, got %#v", first)
	}
	select {
	case second := <-got:
		if second.UnreadCount != 1 {
			t.Fatalf("expected recomputed count 1, got %#v", second)
		}
	case <-time.After(time.Second):
		t.Fatalf("insert between first summary and subscription was lost")
	}
}
