package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSE escribe eventos text/event-stream.
type SSE struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSE prepara la respuesta; falla si el writer no soporta flush.
func NewSSE(w http.ResponseWriter) (*SSE, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("httpx: streaming unsupported")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &SSE{w: w, flusher: f}, nil
}

// Send emite un evento con id opcional (el cliente deduplica por id).
func (s *SSE) Send(event, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(s.w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
