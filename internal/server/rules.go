package server

import (
	"errors"
	"net/http"

	"github.com/jestress/commandcenter/internal/rules"
)

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	ch, err := rules.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.rules.List(r.Context(), ch)
	if err != nil {
		s.ruleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	ch, err := rules.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p rules.Payload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := s.rules.Create(r.Context(), ch, p)
	if err != nil {
		s.ruleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	var p rules.Payload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := s.rules.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		s.ruleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) setRuleActive(w http.ResponseWriter, r *http.Request) {
	var body activeBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}
	rule, err := s.rules.SetActive(r.Context(), r.PathValue("id"), *body.IsActive)
	if err != nil {
		s.ruleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.rules.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.ruleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ruleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rules.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, rules.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("rules store failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
