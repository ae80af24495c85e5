package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jestress/commandcenter/internal/config"
	"github.com/jestress/commandcenter/internal/logging"
	"github.com/jestress/commandcenter/internal/rules"
	"github.com/jestress/commandcenter/internal/seo"
	"github.com/jestress/commandcenter/internal/server"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.New(), os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand shares.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(v *viper.Viper, out, errOut io.Writer) *cobra.Command {
	a := &app{v: v, out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "mcc",
		Short:         "Marketing Command Center SEO scanner",
		Long:          "Crawl a site's root page and same-host links, score their SEO health, and serve the results over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (yaml, json or toml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("renderer", config.RendererHTTP, "Page fetcher: http or chrome")
	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = v.BindPFlag("scan.renderer", pf.Lookup("renderer"))

	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newScanCmd())
	root.AddCommand(a.newWatchCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func (a *app) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(a.errOut, cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// newScanner wires the configured fetcher into a scanner. The returned func
// releases the fetcher.
func newScanner(cfg config.Scan, log *slog.Logger) (*seo.Scanner, func()) {
	var (
		f       seo.Fetcher
		release = func() {}
	)
	if cfg.Renderer == config.RendererChrome {
		cf := seo.NewChromeFetcher(cfg.PerRequestTimeout, cfg.UserAgent)
		f, release = cf, cf.Close
	} else {
		f = seo.NewHTTPFetcher(seo.HTTPOptions{
			Timeout:      cfg.PerRequestTimeout,
			UserAgent:    cfg.UserAgent,
			BlockPrivate: cfg.BlockPrivateHosts,
		})
	}
	return seo.NewScanner(f, seo.WithLogger(log), seo.WithConcurrency(cfg.Concurrency)), release
}

func newRuleStore(cfg config.Rules) (*rules.MemoryStore, error) {
	if cfg.SeedFile == "" {
		return rules.NewMemoryStore()
	}
	seed, err := rules.LoadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	return rules.NewMemoryStore(seed...)
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API, event stream and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			store, err := newRuleStore(cfg.Rules)
			if err != nil {
				return err
			}
			sc, release := newScanner(cfg.Scan, log)
			defer release()

			return server.New(cfg, sc, store, log).Run(cmd.Context())
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("rules-seed", "", "YAML file or directory of rules to preload")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("rules.seed_file", cmd.Flags().Lookup("rules-seed"))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcc %s\n", version)
		},
	}
}
