package seo

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrMissingURL  = errors.New("URL is required")
	ErrEmailNotURL = errors.New("email is not a valid URL")
	ErrInvalidURL  = errors.New("invalid URL")
)

var (
	reEmail  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	reScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*$`)
)

// Normalize trims the input and prefixes https:// when it carries no http(s) scheme.
// It performs no validation; malformed results surface later as fetch failures.
func Normalize(raw string) string {
	u := strings.TrimSpace(raw)
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		u = "https://" + u
	}
	return u
}

// ValidateTarget checks user input before any network activity and returns the
// normalized URL.
func ValidateTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingURL
	}
	if reEmail.MatchString(strings.ToLower(raw)) {
		return "", ErrEmailNotURL
	}
	if scheme, _, ok := strings.Cut(raw, "://"); ok && reScheme.MatchString(scheme) && !isHTTPScheme(scheme) {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, scheme)
	}
	target := Normalize(raw)
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return target, nil
}

func isHTTPScheme(s string) bool {
	return strings.EqualFold(s, "http") || strings.EqualFold(s, "https")
}

// stripQuery drops the query string and fragment of u in place and returns its string form.
func stripQuery(u *url.URL) string {
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// sameURL reports whether a and b name the same page once query, fragment and
// an empty-vs-"/" path are ignored.
func sameURL(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return a == b
	}
	ub, err := url.Parse(b)
	if err != nil {
		return a == b
	}
	for _, u := range []*url.URL{ua, ub} {
		if u.Path == "" {
			u.Path = "/"
		}
	}
	return stripQuery(ua) == stripQuery(ub)
}
