package seo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeFetcher serves canned pages by URL; unknown URLs fail like a dead host.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]Fetched
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (Fetched, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, u)
	if strings.Contains(u, " ") {
		return Fetched{}, fmt.Errorf("%w: bad url", ErrBuildRequest)
	}
	p, ok := f.pages[u]
	if !ok {
		return Fetched{}, errors.New("connection refused")
	}
	return p, nil
}

const goodPage = `<html><head><title>T</title><meta name="description" content="D"></head><body><h1>H</h1></body></html>`

func TestScan_MaxPagesOneNeverFollowsLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]Fetched{
		"https://example.com": {Status: 200, HTML: `<a href="/a">a</a>` + goodPage},
	}}
	rep, err := NewScanner(f).Scan(context.Background(), Request{TargetURL: "example.com", MaxPages: 1}, nil)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(rep.Pages) != 1 || rep.Pages[0].URL != "https://example.com" {
		t.Fatalf("want only the root page, got %+v", rep.Pages)
	}
	if len(f.calls) != 1 {
		t.Fatalf("want 1 fetch, got %v", f.calls)
	}
}

func TestScan_RootNotFound(t *testing.T) {
	f := &fakeFetcher{pages: map[string]Fetched{
		"https://example.com": {Status: 404, HTML: "<title>Not found</title>"},
	}}
	rep, err := NewScanner(f).Scan(context.Background(), Request{TargetURL: "https://example.com", MaxPages: 5}, nil)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if rep.Pages[0].Status != 404 {
		t.Fatalf("want root status 404, got %d", rep.Pages[0].Status)
	}
	var broken *Issue
	for i := range rep.Issues {
		if rep.Issues[i].Key == "broken" {
			broken = &rep.Issues[i]
		}
	}
	if broken == nil || broken.Count < 1 || broken.Priority != P0 {
		t.Fatalf("want a P0 broken issue, got %+v", rep.Issues)
	}
}

func TestScan_RootUnreachableStillReports(t *testing.T) {
	rep, err := NewScanner(&fakeFetcher{}).Scan(context.Background(), Request{TargetURL: "down.example", MaxPages: 10}, nil)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(rep.Pages) != 1 {
		t.Fatalf("want 1 page, got %d", len(rep.Pages))
	}
	p := rep.Pages[0]
	if p.Status != 0 || p.Title != nil || p.MetaDescription != nil || p.H1 != nil || p.LoadTimeMs != 0 {
		t.Fatalf("want failure sentinel, got %+v", p)
	}
	// 100 - 2 (meta) - 5 (broken) - 2 (title) - 1 (h1)
	if rep.KPIs.HealthScore != 90 {
		t.Fatalf("want health 90, got %d", rep.KPIs.HealthScore)
	}
}

func TestScan_MalformedRootIsAnError(t *testing.T) {
	_, err := NewScanner(&fakeFetcher{}).Scan(context.Background(), Request{TargetURL: "exa mple.com", MaxPages: 3}, nil)
	if !errors.Is(err, ErrBuildRequest) {
		t.Fatalf("want ErrBuildRequest, got %v", err)
	}
}

func TestScan_SubPageFailureIsAbsorbed(t *testing.T) {
	root := `<a href="/">home</a><a href="/ok">ok</a><a href="/dead">dead</a><a href="/slow">slow</a>` + goodPage
	f := &fakeFetcher{pages: map[string]Fetched{
		"https://example.com":      {Status: 200, HTML: root},
		"https://example.com/ok":   {Status: 200, HTML: goodPage},
		"https://example.com/slow": {Status: 200, HTML: goodPage, LoadTime: 3 * time.Second},
	}}
	rep, err := NewScanner(f, WithConcurrency(2)).Scan(context.Background(), Request{TargetURL: "https://example.com", MaxPages: 25}, nil)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	wantURLs := []string{"https://example.com", "https://example.com/ok", "https://example.com/dead", "https://example.com/slow"}
	if len(rep.Pages) != len(wantURLs) {
		t.Fatalf("want %d pages, got %d", len(wantURLs), len(rep.Pages))
	}
	for i, u := range wantURLs {
		if rep.Pages[i].URL != u {
			t.Errorf("page %d: want %s, got %s", i, u, rep.Pages[i].URL)
		}
	}
	if rep.Pages[2].Status != 0 || rep.Pages[2].LoadTimeMs != 0 {
		t.Errorf("dead page should be a sentinel, got %+v", rep.Pages[2])
	}
	if rep.KPIs.SlowPages != 1 {
		t.Errorf("want 1 slow page, got %d", rep.KPIs.SlowPages)
	}
}

func TestScan_TruncatesFrontier(t *testing.T) {
	var b strings.Builder
	pages := map[string]Fetched{}
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, `<a href="/p%d">p</a>`, i)
		pages[fmt.Sprintf("https://example.com/p%d", i)] = Fetched{Status: 200, HTML: goodPage}
	}
	pages["https://example.com"] = Fetched{Status: 200, HTML: b.String()}
	for _, maxPages := range []int{-3, 0, 1, 7, 25, 100} {
		rep, err := NewScanner(&fakeFetcher{pages: pages}).Scan(context.Background(), Request{TargetURL: "example.com", MaxPages: maxPages}, nil)
		if err != nil {
			t.Fatalf("scan error: %v", err)
		}
		want := ClampPages(maxPages)
		if len(rep.Pages) != want || rep.Meta.MaxPages != want {
			t.Errorf("maxPages=%d: want %d pages, got %d (meta %d)", maxPages, want, len(rep.Pages), rep.Meta.MaxPages)
		}
		if rep.Pages[0].URL != "https://example.com" {
			t.Errorf("maxPages=%d: root not first", maxPages)
		}
		if maxPages == 7 && rep.Pages[6].URL != "https://example.com/p5" {
			t.Errorf("want extraction order, got %s at 6", rep.Pages[6].URL)
		}
	}
}

func TestScan_ProgressIsMonotonic(t *testing.T) {
	root := `<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>` + goodPage
	f := &fakeFetcher{pages: map[string]Fetched{
		"https://example.com":   {Status: 200, HTML: root},
		"https://example.com/a": {Status: 200, HTML: goodPage},
		"https://example.com/b": {Status: 500},
		"https://example.com/c": {Status: 200, HTML: goodPage},
	}}
	var got []int
	obs := ObserverFunc(func(pct int, _ string) { got = append(got, pct) })
	if _, err := NewScanner(f).Scan(context.Background(), Request{TargetURL: "example.com", MaxPages: 10}, obs); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("progress went backwards: %v", got)
		}
	}
	if got[len(got)-1] != 100 {
		t.Fatalf("want final progress 100, got %v", got)
	}
}

func TestScan_MetaFields(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeFetcher{pages: map[string]Fetched{"https://example.com": {Status: 200, HTML: goodPage}}}
	rep, err := NewScanner(f, WithClock(func() time.Time { return at })).Scan(context.Background(), Request{TargetURL: " example.com ", MaxPages: 3}, nil)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if rep.Meta.ScannedAt != "2026-03-01T12:00:00.000Z" {
		t.Errorf("unexpected scannedAt %q", rep.Meta.ScannedAt)
	}
	if rep.Meta.TargetURL != "https://example.com" || rep.Meta.Host != "example.com" || rep.Meta.MaxPages != 3 {
		t.Errorf("unexpected meta %+v", rep.Meta)
	}
	if rep.Meta.ScanID == "" {
		t.Errorf("missing scan id")
	}
	if rep.KPIs.HealthScore != 100 || len(rep.Issues) != 0 || rep.KPIs.MainIssue != noMajorIssue {
		t.Errorf("clean site should score 100 with no issues, got %+v %+v", rep.KPIs, rep.Issues)
	}
}

// --- end to end through net/http (no internet) ------------------------------

func TestScan_HTTPEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<title>Root</title><h1>Hi</h1>
			<a href="/about?ref=nav">about</a>
			<a href="/moved">moved</a>
			<a href="/missing">missing</a>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<title>About</title><meta name="description" content="us"><h1>About</h1>`))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/about", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := NewScanner(NewHTTPFetcher(HTTPOptions{Timeout: 5 * time.Second}))
	rep, err := s.Scan(t.Context(), Request{TargetURL: srv.URL, MaxPages: 10}, nil)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(rep.Pages) != 4 {
		t.Fatalf("want 4 pages, got %+v", rep.Pages)
	}
	if rep.Pages[1].URL != srv.URL+"/about" || str(rep.Pages[1].Title) != "About" {
		t.Errorf("unexpected about page %+v", rep.Pages[1])
	}
	if rep.Pages[2].Status != 200 || str(rep.Pages[2].Title) != "About" {
		t.Errorf("redirect should be followed, got %+v", rep.Pages[2])
	}
	if rep.Pages[3].Status != 404 {
		t.Errorf("want 404, got %d", rep.Pages[3].Status)
	}
	if rep.KPIs.HealthScore < 0 || rep.KPIs.HealthScore > 100 {
		t.Errorf("health out of range: %d", rep.KPIs.HealthScore)
	}
}
