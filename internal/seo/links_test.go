package seo

import (
	"reflect"
	"testing"
)

func TestExtractLinks_FiltersAndStrips(t *testing.T) {
	html := `
	<!doctype html><html><body>
	  <a href="#top">top</a>
	  <a href="mailto:a@b.com">mail</a>
	  <a href="tel:+331234">tel</a>
	  <a href="JavaScript:void(0)">js</a>
	  <a href="/pricing?x=1">pricing</a>
	  <a href="https://other.example.com/">other</a>
	</body></html>`
	got := ExtractLinks("https://example.com", html)
	want := []string{"https://example.com/pricing"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestExtractLinks_DedupKeepsOrder(t *testing.T) {
	html := `
	<a href="/b">b</a>
	<a href="/a#section">a</a>
	<a href="/b?utm=1">b again</a>
	<a href="https://example.com/a">a again</a>
	<a href="c/d">relative</a>`
	got := ExtractLinks("https://example.com/blog/", html)
	want := []string{
		"https://example.com/b",
		"https://example.com/a",
		"https://example.com/blog/c/d",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestExtractLinks_ExactHostMatch(t *testing.T) {
	html := `
	<a href="https://www.example.com/x">www</a>
	<a href="https://blog.example.com/y">sub</a>
	<a href="http://example.com/z">scheme differs</a>`
	got := ExtractLinks("https://example.com", html)
	want := []string{"http://example.com/z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestExtractLinks_InvalidHrefSkipped(t *testing.T) {
	html := `<a href="http://[::1">bad</a><a href="/ok">ok</a>`
	got := ExtractLinks("https://example.com", html)
	want := []string{"https://example.com/ok"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestExtractLinks_NoLinks(t *testing.T) {
	if got := ExtractLinks("https://example.com", "<p>nothing here</p>"); len(got) != 0 {
		t.Fatalf("expected no links, got %v", got)
	}
}
