package realtime

import (
	"context"
	"encoding/json"
	"iter"
	"time"
)

// TopicMessages recibe todos los inserts de client_messages.
const TopicMessages = "client_messages"

// ClientTopic es el canal filtrado por cliente.
func ClientTopic(clientID string) string {
	return TopicMessages + ":" + clientID
}

// Event es un insert publicado en el bus.
type Event struct {
	Topic    string          `json:"topic"`
	ID       string          `json:"id"`
	ClientID string          `json:"client_id"`
	At       time.Time       `json:"at"`
	Payload  json.RawMessage `json:"payload"`
}

// Bus publica/suscribe eventos. La reconexión es problema del transporte.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	// Subscribe devuelve un canal que se cierra cuando ctx termina.
	Subscribe(ctx context.Context, topic string) (<-chan Event, error)
}

// Events expone una suscripción como secuencia perezosa y reiniciable:
// cada range abre su propia suscripción y la cierra al cortar la iteración.
// Un error de suscripción se entrega una vez y termina la secuencia.
func Events(ctx context.Context, bus Bus, topic string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch, err := bus.Subscribe(subCtx, topic)
		if err != nil {
			yield(Event{}, err)
			return
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if !yield(evt, nil) {
					return
				}
			}
		}
	}
}
