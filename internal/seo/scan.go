// Package seo implements the same-origin SEO crawler: URL normalization, page
// fetching, link extraction, markup parsing and report aggregation.
package seo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Observer receives progress updates while a scan runs. Calls are serialized
// and pct never decreases.
type Observer interface {
	Progress(pct int, label string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(pct int, label string)

func (f ObserverFunc) Progress(pct int, label string) { f(pct, label) }

// Scanner runs bounded crawls. It holds no per-scan state, so one Scanner
// serves concurrent scans.
type Scanner struct {
	fetcher     Fetcher
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

type Option func(*Scanner)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithConcurrency bounds parallel sub-page fetches.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

func NewScanner(f Fetcher, opts ...Option) *Scanner {
	s := &Scanner{
		fetcher:     f,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan crawls req.TargetURL and up to MaxPages-1 same-host pages linked from
// it. Unreachable pages are recorded in the report, never returned as errors;
// the only error is a root URL that cannot be turned into a request.
func (s *Scanner) Scan(ctx context.Context, req Request, obs Observer) (*Report, error) {
	if obs == nil {
		obs = ObserverFunc(func(int, string) {})
	}
	start := s.now()
	target := Normalize(req.TargetURL)
	maxPages := ClampPages(req.MaxPages)
	log := s.logger.With("target", target, "max_pages", maxPages)

	obs.Progress(5, "Starting scan")
	obs.Progress(10, "Fetching root page")

	var links []string
	root, err := s.fetcher.Fetch(ctx, target)
	var rootPage PageResult
	switch {
	case errors.Is(err, ErrBuildRequest):
		return nil, err
	case err != nil:
		log.Warn("root page unreachable", "err", err)
		rootPage = failedPage(target)
	default:
		rootPage = ParsePage(target, root.Status, root.HTML, root.LoadTime)
		links = frontier(target, root.HTML, maxPages-1)
	}

	pages := make([]PageResult, 1+len(links))
	pages[0] = rootPage
	obs.Progress(crawlProgress(1, len(pages)), fmt.Sprintf("Crawling pages (1/%d)", len(pages)))
	s.crawl(ctx, log, links, pages, obs)

	obs.Progress(90, "Computing SEO score")
	issues, kpis := summarize(pages)
	finished := s.now()

	var host string
	if u, err := url.Parse(target); err == nil {
		host = u.Hostname()
	}
	report := &Report{
		Meta: Meta{
			ScanID:     uuid.NewString(),
			ScannedAt:  finished.UTC().Format(isoMillis),
			TargetURL:  target,
			Host:       host,
			MaxPages:   maxPages,
			DurationMs: finished.Sub(start).Milliseconds(),
		},
		KPIs:   kpis,
		Issues: issues,
		Pages:  pages,
	}
	log.Info("scan finished",
		"pages", kpis.PagesCrawled,
		"health", kpis.HealthScore,
		"duration_ms", report.Meta.DurationMs)
	obs.Progress(100, "Scan completed")
	return report, nil
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// frontier lists the links to follow from the root page: same-host, root
// excluded, at most budget entries in extraction order.
func frontier(target, html string, budget int) []string {
	if budget <= 0 {
		return nil
	}
	var out []string
	for _, l := range ExtractLinks(target, html) {
		if sameURL(l, target) {
			continue
		}
		out = append(out, l)
		if len(out) == budget {
			break
		}
	}
	return out
}

// crawl fetches links into pages[1:], keeping extraction order whatever the
// completion order.
func (s *Scanner) crawl(ctx context.Context, log *slog.Logger, links []string, pages []PageResult, obs Observer) {
	var (
		mu   sync.Mutex
		done = 1
	)
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, link := range links {
		g.Go(func() error {
			pages[i+1] = s.fetchPage(ctx, log, link)
			mu.Lock()
			done++
			obs.Progress(crawlProgress(done, len(pages)), fmt.Sprintf("Crawling pages (%d/%d)", done, len(pages)))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scanner) fetchPage(ctx context.Context, log *slog.Logger, pageURL string) PageResult {
	f, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		log.Debug("page fetch failed", "url", pageURL, "err", err)
		return failedPage(pageURL)
	}
	return ParsePage(pageURL, f.Status, f.HTML, f.LoadTime)
}

// crawlProgress maps done/total pages onto 10..85.
func crawlProgress(done, total int) int {
	if total <= 0 {
		return 10
	}
	return 10 + 75*done/total
}
