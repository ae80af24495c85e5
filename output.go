package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/jestress/commandcenter/internal/seo"
)

var (
	statusOK       = color.New(color.FgGreen)
	statusRedirect = color.New(color.FgYellow)
	statusClient   = color.New(color.FgMagenta)
	statusServer   = color.New(color.FgRed)
	statusNeutral  = color.New(color.FgWhite)
)

func statusColor(status int) *color.Color {
	switch {
	case status >= 200 && status < 300:
		return statusOK
	case status >= 300 && status < 400:
		return statusRedirect
	case status >= 400 && status < 500:
		return statusClient
	case status >= 500:
		return statusServer
	default:
		return statusNeutral
	}
}

func priorityColor(p seo.Priority) *color.Color {
	switch p {
	case seo.P0:
		return color.New(color.FgRed, color.Bold)
	case seo.P1:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return color.New(color.FgGreen, color.Bold)
	case score >= 50:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// printReport writes a human-readable summary of rep.
func printReport(w io.Writer, rep *seo.Report) {
	color.New(color.Bold).Fprintln(w, rep.Meta.TargetURL)
	fmt.Fprintf(w, "Scanned %s in %dms (max %d pages)\n\n", rep.Meta.ScannedAt, rep.Meta.DurationMs, rep.Meta.MaxPages)

	scoreColor(rep.KPIs.HealthScore).Fprintf(w, "Health score: %d/100\n", rep.KPIs.HealthScore)
	fmt.Fprintf(w, "Pages crawled: %d  Critical: %d  Warnings: %d  Slow: %d\n",
		rep.KPIs.PagesCrawled, rep.KPIs.CriticalIssues, rep.KPIs.Warnings, rep.KPIs.SlowPages)
	fmt.Fprintf(w, "Main issue: %s\n", rep.KPIs.MainIssue)

	if len(rep.Issues) > 0 {
		fmt.Fprintln(w, "\nIssues")
		for _, is := range rep.Issues {
			priorityColor(is.Priority).Fprintf(w, "  [%s] ", is.Priority)
			fmt.Fprintf(w, "%s (%d)\n", is.Label, is.Count)
		}
	}

	fmt.Fprintln(w, "\nPages")
	for _, p := range rep.Pages {
		status := "ERR"
		if p.Status != 0 {
			status = strconv.Itoa(p.Status)
		}
		statusColor(p.Status).Fprintf(w, "  %3s ", status)
		fmt.Fprintf(w, "%6dms  %s\n", p.LoadTimeMs, p.URL)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newProgressBar renders scan progress on w as a 0..100 bar.
func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Starting…"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}
