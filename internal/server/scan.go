package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jestress/commandcenter/internal/seo"
	"github.com/jestress/commandcenter/internal/sse"
)

// admit applies the rate limit, input validation and host policy shared by
// every scan entry point. It returns the normalized target, or the HTTP
// status and error to report.
func (s *Server) admit(r *http.Request, raw string) (string, int, error) {
	if !s.limiter.allow(clientIP(r)) {
		rl := s.cfg.Server.RateLimit
		return "", http.StatusTooManyRequests,
			fmt.Errorf("too many scans, try later (%d/%ds)", rl.Max, int(rl.Window.Seconds()))
	}
	target, err := seo.ValidateTarget(raw)
	if err != nil {
		return "", http.StatusBadRequest, err
	}
	if s.cfg.Scan.BlockPrivateHosts {
		u, _ := url.Parse(target)
		if err := seo.CheckHost(r.Context(), s.resolver, u.Hostname()); err != nil {
			return "", http.StatusForbidden, err
		}
	}
	return target, 0, nil
}

func (s *Server) maxPages(v *int) int {
	if v == nil {
		return s.cfg.Scan.DefaultMaxPages
	}
	return *v
}

// handleScan runs a scan within the request and answers with the report.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target, status, err := s.admit(r, body.URL)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Scan.TotalBudget)
	defer cancel()

	rep, err := s.scanner.Scan(ctx, seo.Request{TargetURL: target, MaxPages: s.maxPages(body.MaxPages)}, nil)
	if err != nil {
		s.logger.Error("scan failed", "target", target, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// progressQueue buffers observer updates for the stream handler, which is
// the only writer of the response.
type progressQueue struct {
	mu      sync.Mutex
	pending []progressEvent
	last    progressEvent
	notify  chan struct{}
}

func newProgressQueue() *progressQueue {
	return &progressQueue{notify: make(chan struct{}, 1)}
}

func (q *progressQueue) Progress(pct int, label string) {
	ev := progressEvent{Progress: &pct, Label: label}
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.last = ev
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *progressQueue) drain() []progressEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

func (q *progressQueue) latest() progressEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

type scanOutcome struct {
	report *seo.Report
	err    error
}

// handleStream runs a scan and streams its progress as server-sent events.
// The scan is detached from the request: a client that goes away stops
// receiving events, but the scan still finishes within the budget.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, status, err := s.admit(r, q.Get("url"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	var maxPages *int
	if v := q.Get("max_pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_pages must be an integer")
			return
		}
		maxPages = &n
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		s.logger.Error("stream setup failed", "err", err)
		return
	}

	log := s.logger.With("target", target)
	req := seo.Request{TargetURL: target, MaxPages: s.maxPages(maxPages)}
	progress := newProgressQueue()
	result := make(chan scanOutcome, 1)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.Scan.TotalBudget)
	go func() {
		defer cancel()
		start := time.Now()
		rep, err := s.scanner.Scan(ctx, req, progress)
		if err != nil {
			log.Error("streamed scan failed", "err", err)
		} else {
			log.Info("streamed scan finished", "pages", len(rep.Pages), "health", rep.KPIs.HealthScore, "took", time.Since(start))
		}
		result <- scanOutcome{report: rep, err: err}
	}()

	heartbeat := time.NewTicker(s.cfg.Scan.HeartbeatInterval)
	defer heartbeat.Stop()

	flush := func() error {
		for _, ev := range progress.drain() {
			if err := sw.Send("progress", ev); err != nil {
				return err
			}
		}
		return nil
	}

	for {
		select {
		case <-r.Context().Done():
			log.Info("stream client went away, scan continues detached")
			return
		case <-progress.notify:
			if err := flush(); err != nil {
				log.Warn("stream write failed", "err", err)
				return
			}
		case <-heartbeat.C:
			if err := sw.Send("heartbeat", progress.latest()); err != nil {
				log.Warn("stream write failed", "err", err)
				return
			}
		case out := <-result:
			if err := flush(); err != nil {
				log.Warn("stream write failed", "err", err)
				return
			}
			if out.err != nil {
				msg := out.err.Error()
				if errors.Is(out.err, context.DeadlineExceeded) {
					msg = "scan exceeded its time budget"
				}
				_ = sw.Send("error", errorBody{Error: msg})
				return
			}
			_ = sw.Send("done", out.report)
			return
		}
	}
}
