package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

// eventStream writes server-sent events, opening lazily on the first
// event. Before the stream is opened the response status line is still
// free, so failures can fall back to a plain JSON error; once opened,
// everything, including errors, must travel in-band.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	opened  bool
}

func newEventStream(w http.ResponseWriter) *eventStream {
	return &eventStream{w: w}
}

func (s *eventStream) Opened() bool { return s.opened }

func (s *eventStream) open() error {
	flusher, ok := s.w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support flushing")
	}
	s.flusher = flusher

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.opened = true
	return nil
}

// writeEvent emits one `data: <json>` event and flushes it so the
// client sees fragments as they arrive, not when the reply completes.
func (s *eventStream) writeEvent(v any) error {
	if !s.opened {
		if err := s.open(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) WriteFragment(text string) error {
	return s.writeEvent(map[string]string{"text": text})
}

type doneEvent struct {
	Done       bool           `json:"done"`
	SessionRef string         `json:"sessionRef"`
	Videos     []domain.Video `json:"videos"`
}

// WriteDone emits the single terminal success event.
func (s *eventStream) WriteDone(ref domain.SessionRef, videos []domain.Video) error {
	if videos == nil {
		videos = []domain.Video{}
	}
	return s.writeEvent(doneEvent{Done: true, SessionRef: string(ref), Videos: videos})
}

// WriteError emits the single terminal in-band error event.
func (s *eventStream) WriteError(message, details string) error {
	return s.writeEvent(map[string]string{
		"error":   message,
		"details": details,
	})
}
