// Package scanclient drives a streamed SEO scan from the caller's side:
// it owns at most one open stream, tracks progress, and fails scans whose
// stream goes quiet for longer than the stall window.
package scanclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jestress/commandcenter/internal/seo"
	"github.com/jestress/commandcenter/internal/sse"
)

// DefaultStallWindow is how long a running scan may go without any event.
const DefaultStallWindow = 30 * time.Second

var (
	ErrURLRequired        = errors.New("URL is required")
	ErrEmailInput         = errors.New("that looks like an email address, enter a URL (e.g. example.com)")
	ErrStalled            = errors.New("timeout: the scan stopped responding (no progress received)")
	ErrBackendUnavailable = errors.New("failed to reach the scan backend")
	ErrBadPayload         = errors.New("invalid done payload")
	ErrCanceled           = errors.New("scan canceled")
)

// State is the lifecycle position of the client's current scan.
type State int

const (
	Idle State = iota
	Running
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether s ends a scan.
func (s State) Terminal() bool { return s == Done || s == Failed }

// Snapshot is a point-in-time copy of the client's view of a scan.
type Snapshot struct {
	State    State
	Target   string
	Progress int
	Label    string
	Report   *seo.Report
	Err      error
}

// stream is the owned handle of one open event stream.
type stream struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	apiBase     string
	http        *http.Client
	stallWindow time.Duration
	maxPages    int
	logger      *slog.Logger
	onUpdate    func(Snapshot)

	startMu sync.Mutex // serializes Start and Close

	mu      sync.Mutex
	snap    Snapshot
	gen     uint64
	stream  *stream
	changed chan struct{}
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithStallWindow(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.stallWindow = d
		}
	}
}

func WithMaxPages(n int) Option {
	return func(c *Client) { c.maxPages = seo.ClampPages(n) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithOnUpdate registers fn to receive every state change. fn may run on the
// stream goroutine and must not block.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(c *Client) { c.onUpdate = fn }
}

func New(apiBase string, opts ...Option) *Client {
	c := &Client{
		apiBase:     strings.TrimRight(apiBase, "/"),
		http:        &http.Client{},
		stallWindow: DefaultStallWindow,
		maxPages:    seo.DefaultPages,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		changed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a new scan of rawURL, first closing any scan still streaming.
// Invalid input fails the scan without a request and is also returned.
func (c *Client) Start(ctx context.Context, rawURL string) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.release()

	target := strings.TrimSpace(rawURL)
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if err := validate(target); err != nil {
		c.snap = Snapshot{State: Failed, Target: target, Err: err}
		snap := c.publishLocked()
		c.mu.Unlock()
		c.notify(snap)
		return err
	}
	sctx, cancel := context.WithCancel(ctx)
	st := &stream{cancel: cancel, done: make(chan struct{})}
	c.stream = st
	c.snap = Snapshot{State: Running, Target: target, Progress: 1, Label: "Starting…"}
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.logger.Debug("scan stream opening", "target", target)
	go c.run(sctx, gen, st, target)
	return nil
}

// Close releases the open stream, if any, and stops its watchdog. A scan
// still running ends as Failed with ErrCanceled.
func (c *Client) Close() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.release()
}

// Snapshot returns the current state.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Wait blocks until the current scan is no longer running.
func (c *Client) Wait(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		snap, ch := c.snap, c.changed
		c.mu.Unlock()
		if snap.State != Running {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

func validate(target string) error {
	if target == "" {
		return ErrURLRequired
	}
	if strings.Contains(target, "@") && !strings.Contains(target, "://") {
		return ErrEmailInput
	}
	return nil
}

// release closes the owned stream and waits until its goroutines are gone.
func (c *Client) release() {
	c.mu.Lock()
	st := c.stream
	c.stream = nil
	c.mu.Unlock()
	if st != nil {
		st.cancel()
		<-st.done
	}
}

// run consumes one stream until it reaches a terminal state.
func (c *Client) run(ctx context.Context, gen uint64, st *stream, target string) {
	defer close(st.done)

	events := make(chan sse.Event)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		readErr <- c.read(ctx, target, events)
	}()
	defer func() {
		st.cancel()
		<-readerDone
	}()

	watchdog := time.NewTimer(c.stallWindow)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			c.finish(gen, nil, fmt.Errorf("%w: %v", ErrCanceled, context.Cause(ctx)))
			return
		case <-watchdog.C:
			c.logger.Warn("scan stream stalled", "target", target, "window", c.stallWindow)
			c.finish(gen, nil, ErrStalled)
			return
		case err := <-readErr:
			c.finish(gen, nil, fmt.Errorf("%w (API: %s): %v", ErrBackendUnavailable, c.apiBase, err))
			return
		case raw := <-events:
			ev, ok, err := decode(raw)
			if !ok {
				continue
			}
			watchdog.Reset(c.stallWindow)
			switch ev.Kind {
			case KindProgress, KindHeartbeat:
				c.update(gen, ev)
			case KindDone:
				c.finish(gen, ev.Report, err)
				return
			case KindError:
				msg := ev.Message
				if msg == "" {
					msg = "stream error"
				}
				c.finish(gen, nil, fmt.Errorf("%w (API: %s): %s", ErrBackendUnavailable, c.apiBase, msg))
				return
			}
		}
	}
}

// read opens the stream and forwards raw events until it ends. It always
// returns a non-nil error, since a stream only ends normally after done.
func (c *Client) read(ctx context.Context, target string, events chan<- sse.Event) error {
	q := url.Values{"url": {target}, "max_pages": {strconv.Itoa(c.maxPages)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/seo/scan/stream?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var p errorPayload
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&p)
		if p.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, p.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	r := sse.NewReader(resp.Body)
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return errors.New("stream closed unexpectedly")
		}
		if err != nil {
			return err
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) update(gen uint64, ev Event) {
	c.mu.Lock()
	if gen != c.gen || c.snap.State != Running {
		c.mu.Unlock()
		return
	}
	if ev.Progress != nil {
		c.snap.Progress = min(max(*ev.Progress, 0), 100)
	}
	if ev.Label != "" {
		c.snap.Label = ev.Label
	}
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// finish moves the scan to Done when rep is set and err is nil, otherwise to
// Failed. Only the first call for a scan has any effect.
func (c *Client) finish(gen uint64, rep *seo.Report, err error) {
	c.mu.Lock()
	if gen != c.gen || c.snap.State != Running {
		c.mu.Unlock()
		return
	}
	if err == nil && rep != nil {
		c.snap.State = Done
		c.snap.Progress = 100
		c.snap.Label = "Scan completed"
		c.snap.Report = rep
	} else {
		if err == nil {
			err = ErrBadPayload
		}
		c.snap.State = Failed
		c.snap.Err = err
	}
	snap := c.publishLocked()
	c.mu.Unlock()

	if snap.State == Done {
		c.logger.Info("scan done", "target", snap.Target, "health", rep.KPIs.HealthScore)
	} else {
		c.logger.Info("scan failed", "target", snap.Target, "err", err)
	}
	c.notify(snap)
}

// publishLocked wakes waiters and returns a copy of the snapshot.
func (c *Client) publishLocked() Snapshot {
	close(c.changed)
	c.changed = make(chan struct{})
	return c.snap
}

func (c *Client) notify(s Snapshot) {
	if c.onUpdate != nil {
		c.onUpdate(s)
	}
}
