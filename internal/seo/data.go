package seo

// Request is one scan invocation.
type Request struct {
	TargetURL string
	MaxPages  int
}

// PageResult holds the SEO signals extracted from a single fetched page.
// Text fields are nil when the tag or attribute is missing or empty.
type PageResult struct {
	URL             string  `json:"url"`
	Status          int     `json:"status"`
	Title           *string `json:"title"`
	MetaDescription *string `json:"metaDescription"`
	H1              *string `json:"h1"`
	LoadTimeMs      int64   `json:"loadTimeMs"`
}

// Priority ranks an issue, P0 being the most urgent.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
)

// Issue is an aggregate problem category with the number of affected pages.
type Issue struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Priority Priority `json:"priority"`
	Count    int      `json:"count"`
}

// Meta describes the scan that produced a report.
type Meta struct {
	ScanID     string `json:"scanId"`
	ScannedAt  string `json:"scannedAt"`
	TargetURL  string `json:"targetUrl"`
	Host       string `json:"host"`
	MaxPages   int    `json:"maxPages"`
	DurationMs int64  `json:"durationMs"`
}

// KPIs are the headline numbers of a report.
type KPIs struct {
	PagesCrawled   int    `json:"pagesCrawled"`
	CriticalIssues int    `json:"criticalIssues"`
	Warnings       int    `json:"warnings"`
	SlowPages      int    `json:"slowPages"`
	HealthScore    int    `json:"healthScore"`
	MainIssue      string `json:"mainIssue"`
}

// Report is the final result of a scan. The root page is always Pages[0].
type Report struct {
	Meta   Meta         `json:"meta"`
	KPIs   KPIs         `json:"kpis"`
	Issues []Issue      `json:"issues"`
	Pages  []PageResult `json:"pages"`
}
