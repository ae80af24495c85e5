package seo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders pages in headless Chrome so that markup injected by
// JavaScript is visible to the parser. One browser is shared by all tabs.
type ChromeFetcher struct {
	timeout   time.Duration
	userAgent string

	startOnce  sync.Once
	startErr   error
	browserCtx context.Context
	cancel     context.CancelFunc
}

func NewChromeFetcher(timeout time.Duration, userAgent string) *ChromeFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &ChromeFetcher{timeout: timeout, userAgent: userAgent}
}

func (c *ChromeFetcher) start() error {
	c.startOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(c.userAgent),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1366, 900),
		)
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		c.browserCtx = browserCtx
		c.cancel = func() {
			browserCancel()
			allocCancel()
		}
		if err := chromedp.Run(browserCtx); err != nil {
			c.startErr = fmt.Errorf("start chrome: %w", err)
		}
	})
	return c.startErr
}

// Fetch navigates a new tab to pageURL. Status is taken from the first
// document response, which is the final hop after redirects.
func (c *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (Fetched, error) {
	if err := c.start(); err != nil {
		return Fetched{}, err
	}
	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var status atomic.Int64
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			status.CompareAndSwap(0, e.Response.Status)
		}
	})

	var html string
	start := time.Now()
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Join(err, ctx.Err())
		}
		return Fetched{}, fmt.Errorf("render %s: %w", pageURL, err)
	}
	return Fetched{
		Status:   int(status.Load()),
		HTML:     html,
		LoadTime: time.Since(start),
	}, nil
}

// Close shuts the browser down.
func (c *ChromeFetcher) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}
