package server

import "github.com/jestress/commandcenter/internal/seo"

// pageData holds everything the dashboard template renders.
type pageData struct {
	InputURL     string
	MaxPages     int
	Error        string
	Report       *seo.Report
	PerRequestTO int
	Budget       int
}

type scanRequest struct {
	URL      string `json:"url"`
	MaxPages *int   `json:"maxPages"`
}

// progressEvent is the payload of progress and heartbeat stream events.
// Progress is omitted from heartbeats sent before the first update.
type progressEvent struct {
	Progress *int   `json:"progress,omitempty"`
	Label    string `json:"label,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

type activeBody struct {
	IsActive *bool `json:"is_active"`
}
