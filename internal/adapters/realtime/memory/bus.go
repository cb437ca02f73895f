package memory

import (
	"context"
	"sync"

	"client-docs-portal/internal/ports/realtime"
)

// Bus hace fan-out en proceso por topic. Un suscriptor lento pierde eventos
// en vez de bloquear al que publica.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan realtime.Event
	next int
	size int
}

var _ realtime.Bus = (*Bus)(nil)

func New() *Bus {
	return &Bus{subs: make(map[string]map[int]chan realtime.Event), size: 16}
}

func (b *Bus) Publish(ctx context.Context, evt realtime.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[evt.Topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan realtime.Event, error) {
	ch := make(chan realtime.Event, b.size)

	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan realtime.Event)
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[topic], id)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// Subscribers cuenta suscripciones activas de un topic (tests).
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
