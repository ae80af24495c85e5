package seo

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var skippedSchemes = []string{"mailto:", "tel:", "javascript:"}

// ExtractLinks returns the distinct same-host links found in html, resolved
// against base with query and fragment removed, in document order.
func ExtractLinks(base, html string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if skipHref(href) {
			return
		}
		u, err := baseURL.Parse(href)
		if err != nil {
			return
		}
		if !sameHost(baseURL, u) {
			return
		}
		key := stripQuery(u)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		links = append(links, key)
	})
	return links
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	for _, p := range skippedSchemes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// sameHost compares hostnames exactly (case-folded, as URL parsers in browsers
// do): www.example.com and example.com differ.
func sameHost(a, b *url.URL) bool {
	ha := strings.ToLower(a.Hostname())
	hb := strings.ToLower(b.Hostname())
	return ha != "" && ha == hb
}
