package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jestress/commandcenter/internal/config"
	"github.com/jestress/commandcenter/internal/logging"
	"github.com/jestress/commandcenter/internal/rules"
	"github.com/jestress/commandcenter/internal/seo"
	"github.com/jestress/commandcenter/internal/server"
)

// --- helpers ---------------------------------------------------------------

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/":
			_, _ = io.WriteString(w, `<!doctype html><html><head><title>Home</title>
				<meta name="description" content="Welcome"></head>
				<body><h1>Home</h1><a href="/a">A</a><a href="/b">B</a><a href="https://other.example/">x</a></body></html>`)
		case "/a":
			_, _ = io.WriteString(w, `<html><head><title>A</title><meta name="description" content="a"></head><body><h1>A</h1></body></html>`)
		case "/b":
			_, _ = io.WriteString(w, `<html><head><title>B</title></head><body><p>no heading</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(config.New(), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

// --- commands --------------------------------------------------------------

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "mcc "+version {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestScanCmd_JSON(t *testing.T) {
	t.Setenv("MCC_SCAN_BLOCK_PRIVATE_HOSTS", "false")
	site := testSite(t)

	out, _, err := run(t, "scan", site.URL, "--json", "-n", "3")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var rep seo.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, out)
	}
	if rep.Meta.MaxPages != 3 || len(rep.Pages) != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Pages[1].URL != site.URL+"/a" || rep.Pages[2].URL != site.URL+"/b" {
		t.Errorf("pages out of extraction order: %s, %s", rep.Pages[1].URL, rep.Pages[2].URL)
	}
	// /b lacks a meta description (2) and an H1 (1)
	if rep.KPIs.HealthScore != 97 || rep.KPIs.MainIssue != "Missing Meta Descriptions on 1 page(s)" {
		t.Errorf("unexpected kpis %+v", rep.KPIs)
	}
}

func TestScanCmd_Text(t *testing.T) {
	t.Setenv("MCC_SCAN_BLOCK_PRIVATE_HOSTS", "false")
	site := testSite(t)

	out, _, err := run(t, "scan", site.URL)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for _, want := range []string{"Health score: 97/100", "Pages crawled: 3", "[P0] Missing Meta Descriptions (1)", site.URL + "/b"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScanCmd_Rejects(t *testing.T) {
	if _, _, err := run(t, "scan", "jane@example.com"); !errors.Is(err, seo.ErrEmailNotURL) {
		t.Errorf("email: want ErrEmailNotURL, got %v", err)
	}
	if _, _, err := run(t, "scan", "http://127.0.0.1:9/"); !errors.Is(err, seo.ErrBlockedHost) {
		t.Errorf("loopback: want ErrBlockedHost, got %v", err)
	}
	if _, _, err := run(t, "scan"); err == nil {
		t.Error("missing argument accepted")
	}
	if _, _, err := run(t, "scan", "example.com", "--renderer", "lynx"); err == nil || !strings.Contains(err.Error(), "scan.renderer") {
		t.Errorf("bad renderer: got %v", err)
	}
}

func TestWatchCmd(t *testing.T) {
	site := testSite(t)

	cfg, err := config.Load(config.New())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Scan.BlockPrivateHosts = false
	cfg.Scan.HeartbeatInterval = 50 * time.Millisecond
	store, _ := rules.NewMemoryStore()
	sc := seo.NewScanner(seo.NewHTTPFetcher(seo.HTTPOptions{Timeout: 5 * time.Second}))
	api := httptest.NewServer(server.New(cfg, sc, store, logging.Discard()).Handler())
	t.Cleanup(api.Close)

	out, _, err := run(t, "watch", site.URL, "--api", api.URL, "--json", "-n", "2")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	var rep seo.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, out)
	}
	if len(rep.Pages) != 2 || rep.Meta.TargetURL != site.URL {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestWatchCmd_BackendDown(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	_, _, err := run(t, "watch", "example.com", "--api", down.URL)
	if err == nil || !strings.Contains(err.Error(), down.URL) {
		t.Errorf("want error naming the API base, got %v", err)
	}
}
