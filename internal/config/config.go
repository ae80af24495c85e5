// Package config loads service and CLI settings from defaults, an optional
// config file, MCC_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "MCC"

const (
	RendererHTTP   = "http"
	RendererChrome = "chrome"
)

type Config struct {
	Server Server
	Scan   Scan
	Client Client
	Rules  Rules
	Log    Log
}

type Server struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	AllowedOrigins    []string
	RateLimit         RateLimit
}

// RateLimit allows Max scans per client IP within Window.
type RateLimit struct {
	Max    int
	Window time.Duration
}

type Scan struct {
	DefaultMaxPages   int
	PerRequestTimeout time.Duration
	TotalBudget       time.Duration
	Concurrency       int
	UserAgent         string
	HeartbeatInterval time.Duration
	BlockPrivateHosts bool
	Renderer          string
}

type Client struct {
	APIBase     string
	StallWindow time.Duration
}

type Rules struct {
	SeedFile string
}

type Log struct {
	Level  string
	Format string
}

// New returns a viper instance with every default registered and environment
// lookup enabled (server.addr is read from MCC_SERVER_ADDR).
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.rate_limit.max", 10)
	v.SetDefault("server.rate_limit.window", 300*time.Second)

	v.SetDefault("scan.default_max_pages", 10)
	v.SetDefault("scan.per_request_timeout", 8*time.Second)
	v.SetDefault("scan.total_budget", 45*time.Second)
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("scan.user_agent", "")
	v.SetDefault("scan.heartbeat_interval", 10*time.Second)
	v.SetDefault("scan.block_private_hosts", true)
	v.SetDefault("scan.renderer", RendererHTTP)

	v.SetDefault("client.api_base", "http://127.0.0.1:8080")
	v.SetDefault("client.stall_window", 30*time.Second)

	v.SetDefault("rules.seed_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the file named by the "config" key, if any, and returns the
// validated settings.
func Load(v *viper.Viper) (Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Server: Server{
			Addr:              v.GetString("server.addr"),
			ReadHeaderTimeout: v.GetDuration("server.read_header_timeout"),
			AllowedOrigins:    v.GetStringSlice("server.allowed_origins"),
			RateLimit: RateLimit{
				Max:    v.GetInt("server.rate_limit.max"),
				Window: v.GetDuration("server.rate_limit.window"),
			},
		},
		Scan: Scan{
			DefaultMaxPages:   v.GetInt("scan.default_max_pages"),
			PerRequestTimeout: v.GetDuration("scan.per_request_timeout"),
			TotalBudget:       v.GetDuration("scan.total_budget"),
			Concurrency:       v.GetInt("scan.concurrency"),
			UserAgent:         v.GetString("scan.user_agent"),
			HeartbeatInterval: v.GetDuration("scan.heartbeat_interval"),
			BlockPrivateHosts: v.GetBool("scan.block_private_hosts"),
			Renderer:          strings.ToLower(v.GetString("scan.renderer")),
		},
		Client: Client{
			APIBase:     v.GetString("client.api_base"),
			StallWindow: v.GetDuration("client.stall_window"),
		},
		Rules: Rules{SeedFile: v.GetString("rules.seed_file")},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	positive := func(key string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	positive("server.read_header_timeout", c.Server.ReadHeaderTimeout)
	if c.Server.RateLimit.Max < 1 {
		errs = append(errs, fmt.Errorf("server.rate_limit.max must be at least 1, got %d", c.Server.RateLimit.Max))
	}
	positive("server.rate_limit.window", c.Server.RateLimit.Window)

	if c.Scan.DefaultMaxPages < 1 || c.Scan.DefaultMaxPages > 25 {
		errs = append(errs, fmt.Errorf("scan.default_max_pages must be within 1..25, got %d", c.Scan.DefaultMaxPages))
	}
	positive("scan.per_request_timeout", c.Scan.PerRequestTimeout)
	positive("scan.total_budget", c.Scan.TotalBudget)
	positive("scan.heartbeat_interval", c.Scan.HeartbeatInterval)
	if c.Scan.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("scan.concurrency must be at least 1, got %d", c.Scan.Concurrency))
	}
	if c.Scan.Renderer != RendererHTTP && c.Scan.Renderer != RendererChrome {
		errs = append(errs, fmt.Errorf("scan.renderer must be %q or %q, got %q", RendererHTTP, RendererChrome, c.Scan.Renderer))
	}

	if c.Client.APIBase == "" {
		errs = append(errs, errors.New("client.api_base is required"))
	}
	positive("client.stall_window", c.Client.StallWindow)

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not supported", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
