package seo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// ErrBuildRequest marks a URL that could not even be turned into a request.
var ErrBuildRequest = errors.New("cannot build request")

// Fetched is the raw outcome of retrieving one page.
type Fetched struct {
	Status   int
	HTML     string
	LoadTime time.Duration
}

// Fetcher retrieves a page. Any HTTP status is a successful fetch; an error
// means no usable response was obtained.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (Fetched, error)
}

// HTTPOptions configure an HTTPFetcher.
type HTTPOptions struct {
	Timeout      time.Duration
	UserAgent    string
	BlockPrivate bool
}

// HTTPFetcher fetches pages with net/http, following redirects.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if opts.BlockPrivate {
		dialer.Control = guardDial
	}
	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			IdleConnTimeout:     30 * time.Second,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
		},
		Timeout: opts.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &HTTPFetcher{client: client, userAgent: opts.UserAgent}
}

// Fetch issues a GET for pageURL. LoadTime covers the request and the full
// read and decode of the body as text.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Fetched{}, fmt.Errorf("%w: %v", ErrBuildRequest, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHTML)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return Fetched{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var r io.Reader = resp.Body
	if dec, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type")); err == nil {
		r = dec
	}
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return Fetched{Status: resp.StatusCode}, fmt.Errorf("failed reading response body: %w", err)
	}
	return Fetched{
		Status:   resp.StatusCode,
		HTML:     string(body),
		LoadTime: time.Since(start),
	}, nil
}
