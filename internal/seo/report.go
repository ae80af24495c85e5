package seo

import "fmt"

// counts are the per-category tallies over all pages of a scan.
type counts struct {
	missingTitle int
	missingMeta  int
	missingH1    int
	slowPages    int
	brokenPages  int
}

func tally(pages []PageResult) counts {
	var c counts
	for _, p := range pages {
		if p.Title == nil {
			c.missingTitle++
		}
		if p.MetaDescription == nil {
			c.missingMeta++
		}
		if p.H1 == nil {
			c.missingH1++
		}
		if p.LoadTimeMs >= SlowPageThreshold.Milliseconds() {
			c.slowPages++
		}
		if p.Status >= 400 || p.Status == 0 {
			c.brokenPages++
		}
	}
	return c
}

// issueDef is one of the fixed issue categories with its health-score penalty per page.
type issueDef struct {
	key      string
	label    string
	priority Priority
	penalty  int
	count    func(counts) int
}

// issueDefs is ordered by priority, then category; reports keep this order.
var issueDefs = []issueDef{
	{"missing_meta", "Missing Meta Descriptions", P0, 2, func(c counts) int { return c.missingMeta }},
	{"broken", "Broken / Non-200 Pages", P0, 5, func(c counts) int { return c.brokenPages }},
	{"slow", "Slow Page Load Times (>=3s)", P1, 2, func(c counts) int { return c.slowPages }},
	{"missing_title", "Missing Title Tags", P1, 2, func(c counts) int { return c.missingTitle }},
	{"missing_h1", "Missing H1", P2, 1, func(c counts) int { return c.missingH1 }},
}

const noMajorIssue = "No major issue detected"

// summarize derives issues and KPIs from the collected pages.
func summarize(pages []PageResult) ([]Issue, KPIs) {
	c := tally(pages)
	issues := make([]Issue, 0, len(issueDefs))
	kpis := KPIs{
		PagesCrawled: len(pages),
		SlowPages:    c.slowPages,
		MainIssue:    noMajorIssue,
	}

	score := 100
	worst := 0
	for _, d := range issueDefs {
		n := d.count(c)
		score -= d.penalty * n
		if n == 0 {
			continue
		}
		issues = append(issues, Issue{Key: d.key, Label: d.label, Priority: d.priority, Count: n})
		if d.priority == P0 {
			kpis.CriticalIssues += n
		} else {
			kpis.Warnings += n
		}
		if w := d.penalty * n; w > worst {
			worst = w
			kpis.MainIssue = fmt.Sprintf("%s on %d page(s)", d.label, n)
		}
	}
	kpis.HealthScore = max(0, score)
	return issues, kpis
}
