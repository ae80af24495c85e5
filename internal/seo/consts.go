package seo

import "time"

const (
	MinPages     = 1
	MaxPagesCap  = 25 // hard ceiling on pages per scan
	DefaultPages = 10

	SlowPageThreshold = 3 * time.Second

	defaultConcurrency = 4
	maxBodyBytes       = 4 << 20 // 4MiB cap for analysis
	maxRedirects       = 10

	// DefaultUserAgent looks like a desktop browser to get past trivial bot blocking.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	acceptHTML       = "text/html,application/xhtml+xml"
)

// ClampPages bounds a page budget to [MinPages, MaxPagesCap].
func ClampPages(n int) int {
	if n < MinPages {
		return MinPages
	}
	if n > MaxPagesCap {
		return MaxPagesCap
	}
	return n
}
