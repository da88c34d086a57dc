// Package sse writes Server-Sent Events.
//
//	stream := sse.New(w, r)
//	if stream == nil {
//	    return
//	}
//	sse.Pump(r.Context(), stream, "cart", updates, 15*time.Second)
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Stream is one open event stream.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
	closed  bool
}

// New sets the event-stream headers. It answers 500 and returns nil when w
// cannot flush.
func New(w http.ResponseWriter, r *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, r: r, flusher: flusher}
}

// Send writes one named event with a JSON payload.
func (s *Stream) Send(event string, data any) error {
	if s.IsClosed() {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		s.closed = true
		return fmt.Errorf("sse: write: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a comment line, used as a heartbeat.
func (s *Stream) Comment(msg string) {
	if s.IsClosed() {
		return
	}
	fmt.Fprintf(s.w, ": %s\n\n", msg)
	s.flusher.Flush()
}

// IsClosed reports whether the client went away.
func (s *Stream) IsClosed() bool {
	if s == nil {
		return true
	}
	if !s.closed {
		select {
		case <-s.r.Context().Done():
			s.closed = true
		default:
		}
	}
	return s.closed
}

// Pump sends every value received from updates as event until ctx is done,
// updates is closed, or a write fails. A heartbeat comment is written after
// each idle period when heartbeat is positive.
func Pump[T any](ctx context.Context, s *Stream, event string, updates <-chan T, heartbeat time.Duration) error {
	var tick <-chan time.Time
	if heartbeat > 0 {
		t := time.NewTicker(heartbeat)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.Send(event, v); err != nil {
				return err
			}
		case <-tick:
			s.Comment("ping")
		}
	}
}
