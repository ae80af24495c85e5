// Package sse writes and reads text/event-stream responses.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// maxEventBytes bounds a single line; a done payload for 25 pages fits easily.
const maxEventBytes = 8 << 20

// Event is one dispatched server-sent event.
type Event struct {
	Name string
	Data string
}

// Writer emits named JSON events and flushes each one immediately. It is safe
// for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	rc *http.ResponseController
}

// NewWriter prepares w for streaming and sends the response headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("streaming unsupported: %w", err)
	}
	return &Writer{w: w, rc: rc}, nil
}

// Send writes event with v encoded as JSON.
func (s *Writer) Send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Reader parses an event stream.
type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventBytes)
	return &Reader{sc: sc}
}

// Next blocks until a complete event arrives. It returns io.EOF when the
// stream ends; a trailing event without its blank line is dropped.
func (r *Reader) Next() (Event, error) {
	var (
		ev   Event
		data []string
	)
	for r.sc.Scan() {
		line := r.sc.Text()
		if line == "" {
			if data == nil {
				ev = Event{}
				continue
			}
			if ev.Name == "" {
				ev.Name = "message"
			}
			ev.Data = strings.Join(data, "\n")
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := r.sc.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
