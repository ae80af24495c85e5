// Package server exposes the SEO scan over HTTP: a JSON endpoint, a
// server-sent event stream, the rules API and a small HTML dashboard.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jestress/commandcenter/internal/config"
	"github.com/jestress/commandcenter/internal/rules"
	"github.com/jestress/commandcenter/internal/seo"
)

//go:embed dashboard.html
var templates embed.FS

// Scanner runs one scan. *seo.Scanner satisfies it.
type Scanner interface {
	Scan(ctx context.Context, req seo.Request, obs seo.Observer) (*seo.Report, error)
}

type Server struct {
	cfg      config.Config
	scanner  Scanner
	rules    rules.Store
	logger   *slog.Logger
	resolver seo.Resolver
	limiter  *ipLimiter
	tmpl     *template.Template
}

type Option func(*Server)

// WithResolver replaces the DNS resolver used to vet scan targets.
func WithResolver(r seo.Resolver) Option {
	return func(s *Server) { s.resolver = r }
}

// WithClock sets the time source of the rate limiter.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.limiter.now = now }
}

func New(cfg config.Config, sc Scanner, store rules.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		scanner:  sc,
		rules:    store,
		logger:   logger,
		resolver: net.DefaultResolver,
		limiter:  newIPLimiter(cfg.Server.RateLimit.Max, cfg.Server.RateLimit.Window, time.Now),
		tmpl: template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
			"deref": deref,
			"ms":    func(v int64) string { return fmt.Sprintf("%.2fs", float64(v)/1000) },
		}).ParseFS(templates, "dashboard.html")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("GET /{$}", s.index)
	m.HandleFunc("GET /analyze", s.handleAnalyze)
	m.HandleFunc("GET /health", s.handleHealth)
	m.HandleFunc("POST /api/seo/scan", s.handleScan)
	m.HandleFunc("GET /seo/scan/stream", s.handleStream)
	m.HandleFunc("GET /api/rules", s.listRules)
	m.HandleFunc("POST /api/rules", s.createRule)
	m.HandleFunc("PUT /api/rules/{id}", s.updateRule)
	m.HandleFunc("PATCH /api/rules/{id}/active", s.setRuleActive)
	m.HandleFunc("DELETE /api/rules/{id}", s.deleteRule)
	return s.logRequests(s.cors(m))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", s.cfg.Server.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the flusher underneath.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// logRequests logs requests, their status and durations.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(rec, r)
	})
}

// cors answers preflights and tags responses for configured origins.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.Server.AllowedOrigins))
	for _, o := range s.cfg.Server.AllowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
