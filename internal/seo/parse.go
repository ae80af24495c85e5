package seo

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ParsePage extracts the title, meta description and first H1 of html. It does
// no I/O and never fails: markup it cannot read yields nil fields.
func ParsePage(pageURL string, status int, html string, loadTime time.Duration) PageResult {
	p := PageResult{
		URL:        pageURL,
		Status:     status,
		LoadTimeMs: max(loadTime.Milliseconds(), 0),
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return p
	}

	p.Title = textOrNil(doc.Find("title").First().Text())
	p.H1 = textOrNil(doc.Find("h1").First().Text())
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		content, _ := s.Attr("content")
		p.MetaDescription = textOrNil(content)
		return false
	})
	return p
}

// failedPage is the sentinel recorded when a page could not be fetched.
func failedPage(pageURL string) PageResult {
	return PageResult{URL: pageURL}
}

func textOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
