package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// eventSink writes server-sent events to a flushed response writer. Writes
// after the client disconnects fail silently; the producer relies on context
// cancellation, not write errors, to stop.
type eventSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newEventSink prepares w for SSE streaming. Returns an error when the
// underlying writer cannot flush (misconfigured proxy or test recorder).
func newEventSink(w http.ResponseWriter) (*eventSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &eventSink{w: w, flusher: flusher}, nil
}

// Send emits one named event with a JSON payload and flushes it.
func (s *eventSink) Send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.flusher.Flush()
}

// SendData emits an unnamed data-only event, used for the terminal message.
func (s *eventSink) SendData(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", data)
	s.flusher.Flush()
}
