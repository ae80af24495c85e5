package main

import (
	"context"
	"net"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jestress/commandcenter/internal/scanclient"
	"github.com/jestress/commandcenter/internal/seo"
)

// newScanCmd scans in-process, without a server.
func (a *app) newScanCmd() *cobra.Command {
	var (
		maxPages int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Scan a site and print its SEO report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			target, err := seo.ValidateTarget(args[0])
			if err != nil {
				return err
			}
			if cfg.Scan.BlockPrivateHosts {
				u, _ := url.Parse(target)
				if err := seo.CheckHost(cmd.Context(), net.DefaultResolver, u.Hostname()); err != nil {
					return err
				}
			}
			if maxPages == 0 {
				maxPages = cfg.Scan.DefaultMaxPages
			}

			sc, release := newScanner(cfg.Scan, log)
			defer release()

			var obs seo.Observer
			if !asJSON {
				bar := newProgressBar(a.errOut)
				defer func() { _ = bar.Finish() }()
				obs = seo.ObserverFunc(func(pct int, label string) {
					bar.Describe(label)
					_ = bar.Set(pct)
				})
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Scan.TotalBudget)
			defer cancel()
			rep, err := sc.Scan(ctx, seo.Request{TargetURL: target, MaxPages: maxPages}, obs)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, rep)
			}
			printReport(a.out, rep)
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxPages, "max-pages", "n", 0, "Pages to crawl including the root, 1..25 (default scan.default_max_pages)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// newWatchCmd runs a scan on a server and follows its event stream.
func (a *app) newWatchCmd() *cobra.Command {
	var (
		maxPages int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "watch <url>",
		Short: "Run a scan on a server and follow its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			if maxPages == 0 {
				maxPages = cfg.Scan.DefaultMaxPages
			}

			bar := newProgressBar(a.errOut)
			c := scanclient.New(cfg.Client.APIBase,
				scanclient.WithStallWindow(cfg.Client.StallWindow),
				scanclient.WithMaxPages(maxPages),
				scanclient.WithLogger(log),
				scanclient.WithOnUpdate(func(s scanclient.Snapshot) {
					if s.State == scanclient.Running {
						bar.Describe(s.Label)
						_ = bar.Set(s.Progress)
					}
				}),
			)
			defer c.Close()

			if err := c.Start(cmd.Context(), args[0]); err != nil {
				return err
			}
			snap, err := c.Wait(cmd.Context())
			_ = bar.Finish()
			if err != nil {
				return err
			}
			if snap.State == scanclient.Failed {
				return snap.Err
			}
			if asJSON {
				return writeJSON(a.out, snap.Report)
			}
			printReport(a.out, snap.Report)
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxPages, "max-pages", "n", 0, "Pages to crawl including the root, 1..25 (default scan.default_max_pages)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().String("api", "http://127.0.0.1:8080", "Base URL of the scan server")
	cmd.Flags().Duration("stall-window", scanclient.DefaultStallWindow, "Fail the scan after this long without events")
	_ = a.v.BindPFlag("client.api_base", cmd.Flags().Lookup("api"))
	_ = a.v.BindPFlag("client.stall_window", cmd.Flags().Lookup("stall-window"))
	return cmd
}
