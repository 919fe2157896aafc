// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/valpere/crosslink/internal/document"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/store"
)

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error  string                 `json:"error"`
	Errors rules.ValidationErrors `json:"errors,omitempty"`
}

// ValidateResponse is the body of POST /api/v1/rules/validate.
type ValidateResponse struct {
	Valid  bool                   `json:"valid"`
	Errors rules.ValidationErrors `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, verrs rules.ValidationErrors) {
	writeJSON(w, status, ErrorResponse{Error: message, Errors: verrs})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	reader := io.Reader(r.Body)
	if s.cfg.MaxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	return io.ReadAll(reader)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return
	}

	var req EvaluateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), nil)
		return
	}
	if u, err := url.Parse(req.URL); err != nil || !u.IsAbs() {
		writeError(w, http.StatusBadRequest, "url must be an absolute URL", nil)
		return
	}

	doc, err := document.ParseString(req.HTML, req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid html: %v", err), nil)
		return
	}

	result, err := s.engine.Run(r.Context(), req.URL, doc)
	if err != nil {
		s.logger.Errorf("evaluation of %s failed: %v", req.URL, err)
		writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// decodeRules reads a JSON or YAML rule set from the request body.
func (s *Server) decodeRules(w http.ResponseWriter, r *http.Request) ([]rules.SiteProfile, bool) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return nil, false
	}
	profiles, err := rules.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return nil, false
	}
	return profiles, true
}

func (s *Server) handlePutRules(w http.ResponseWriter, r *http.Request) {
	profiles, ok := s.decodeRules(w, r)
	if !ok {
		return
	}
	if err := s.store.Save(r.Context(), profiles); err != nil {
		s.writeSaveError(w, err)
		return
	}
	s.rehydrate(w, r, profiles)
}

func (s *Server) handleValidateRules(w http.ResponseWriter, r *http.Request) {
	profiles, ok := s.decodeRules(w, r)
	if !ok {
		return
	}
	verrs := rules.Validate(profiles)
	if verrs == nil {
		verrs = rules.ValidationErrors{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(verrs) == 0, Errors: verrs})
}

func (s *Server) handleExportRules(w http.ResponseWriter, r *http.Request) {
	text, err := s.store.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="site-rules.json"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

func (s *Server) handleImportRules(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return
	}
	profiles, err := s.store.Import(r.Context(), string(body))
	if err != nil {
		s.writeSaveError(w, err)
		return
	}
	s.rehydrate(w, r, profiles)
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	s.engine.Invalidate(r.URL.Query().Get("url"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeSaveError(w http.ResponseWriter, err error) {
	var verrs rules.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(w, http.StatusUnprocessableEntity, "rule set rejected", verrs)
		return
	}
	if errors.Is(err, store.ErrDecode) {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
}

// rehydrate reloads the engine after a successful write so evaluations
// see the new rule set.
func (s *Server) rehydrate(w http.ResponseWriter, r *http.Request, profiles []rules.SiteProfile) {
	if err := s.engine.Hydrate(r.Context()); err != nil {
		s.logger.Errorf("rules saved but reload failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
