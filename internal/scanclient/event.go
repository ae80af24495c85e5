package scanclient

import (
	"encoding/json"
	"fmt"

	"github.com/jestress/commandcenter/internal/seo"
	"github.com/jestress/commandcenter/internal/sse"
)

// Kind tags a stream event.
type Kind int

const (
	KindProgress Kind = iota
	KindHeartbeat
	KindDone
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindHeartbeat:
		return "heartbeat"
	case KindDone:
		return "done"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a decoded stream event. Progress and heartbeat share one shape:
// both only prove liveness and may carry a progress value and label.
type Event struct {
	Kind     Kind
	Progress *int
	Label    string
	Report   *seo.Report
	Message  string
}

type updatePayload struct {
	Progress *int   `json:"progress"`
	Label    string `json:"label"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// decode turns a raw SSE event into an Event. Unknown event names return ok=false
// and are ignored by the client without resetting the watchdog.
func decode(raw sse.Event) (ev Event, ok bool, err error) {
	switch raw.Name {
	case "progress", "heartbeat", "ping":
		ev.Kind = KindProgress
		if raw.Name != "progress" {
			ev.Kind = KindHeartbeat
		}
		var p updatePayload
		if json.Unmarshal([]byte(raw.Data), &p) == nil {
			ev.Progress = p.Progress
			ev.Label = p.Label
		}
		return ev, true, nil
	case "done":
		var rep seo.Report
		if err := json.Unmarshal([]byte(raw.Data), &rep); err != nil {
			return Event{Kind: KindDone}, true, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return Event{Kind: KindDone, Report: &rep}, true, nil
	case "error":
		var p errorPayload
		_ = json.Unmarshal([]byte(raw.Data), &p)
		return Event{Kind: KindError, Message: p.Error}, true, nil
	default:
		return Event{}, false, nil
	}
}
