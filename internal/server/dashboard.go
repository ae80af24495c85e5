package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jestress/commandcenter/internal/seo"
)

func (s *Server) newPageData(input string) pageData {
	return pageData{
		InputURL:     input,
		MaxPages:     s.cfg.Scan.DefaultMaxPages,
		PerRequestTO: int(s.cfg.Scan.PerRequestTimeout.Seconds()),
		Budget:       int(s.cfg.Scan.TotalBudget.Seconds()),
	}
}

// index serves the dashboard with the scan form.
func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	s.render(w, s.newPageData(""))
}

// handleAnalyze scans the submitted URL and renders the report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("u"))
	data := s.newPageData(raw)
	if v := r.URL.Query().Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			data.Error = "max pages must be a number"
			s.render(w, data)
			return
		}
		data.MaxPages = seo.ClampPages(n)
	}

	target, _, err := s.admit(r, raw)
	if err != nil {
		data.Error = err.Error()
		s.render(w, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Scan.TotalBudget)
	defer cancel()
	rep, err := s.scanner.Scan(ctx, seo.Request{TargetURL: target, MaxPages: data.MaxPages}, nil)
	if err != nil {
		data.Error = err.Error()
		s.render(w, data)
		return
	}
	data.Report = rep
	s.render(w, data)
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Error("render dashboard", "err", err)
	}
}
