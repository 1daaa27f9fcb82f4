package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"easlog/src/actions"
	"easlog/src/contracts"
	"easlog/src/provider"
)

// FailuresHeader carries the number of log fragments or lines dropped while
// building a logs document.
const FailuresHeader = "X-Fragment-Failures"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ActionsResponse lists what can be downloaded for a build.
type ActionsResponse struct {
	Build   *provider.BuildRecord `json:"build"`
	Actions []actions.Action      `json:"actions"`
}

// SubmitRequest is the body of POST /exports.
type SubmitRequest struct {
	URL     string   `json:"url"`
	Actions []string `json:"actions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	resp := ErrorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	var ue *provider.UserError
	if errors.As(provider.WrapError(err), &ue) {
		resp.Error = ue.Message
		resp.Hint = ue.Hint
	}
	writeJSON(w, status, resp)
}

// statusFor maps lookup and download errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrInvalidURL), errors.Is(err, actions.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrBuildNotFound), errors.Is(err, provider.ErrNoBuildData),
		errors.Is(err, actions.ErrUnavailable):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, provider.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, provider.ErrNetworkTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// attachment sets the headers of a file download.
func attachment(w http.ResponseWriter, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   s.pipeline.Mode.String(),
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*provider.BuildRecord, bool) {
	rec, err := s.pipeline.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return nil, false
	}
	return rec, true
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ActionsResponse{Build: rec, Actions: actions.For(rec)})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.serveLogs(w, r, rec)
}

func (s *Server) serveLogs(w http.ResponseWriter, r *http.Request, rec *provider.BuildRecord) {
	action, err := actions.Lookup(rec, actions.KindLogs)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err)
		return
	}

	start := time.Now()
	out := s.pipeline.Aggregator.Run(r.Context(), rec.LogFragmentURLs)
	res := &actions.Result{BuildID: rec.ID, Action: action, Failures: len(out.Failures)}

	if res.Failures > 0 {
		w.Header().Set(FailuresHeader, strconv.Itoa(res.Failures))
	}
	if actions.Unreadable(out) {
		s.logger.Error("[Server] No log fragment of build %s could be read, serving an empty document", rec.ID)
	}

	attachment(w, action.Filename, "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Document)))
	n, err := io.WriteString(w, out.Document)
	res.Bytes = int64(n)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
	}
	s.record(r, res)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	kind, err := actions.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if kind == actions.KindLogs {
		s.serveLogs(w, r, rec)
		return
	}

	action, err := actions.Lookup(rec, kind)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err)
		return
	}

	start := time.Now()
	res := &actions.Result{BuildID: rec.ID, Action: action}

	resp, err := s.pipeline.Downloader.Open(r.Context(), action.URL)
	if err != nil {
		res.Error = err.Error()
		s.record(r, res)
		writeError(w, r, http.StatusBadGateway, err)
		return
	}
	defer resp.Body.Close()

	attachment(w, action.Filename, resp.Header.Get("Content-Type"))
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	res.Bytes, err = io.Copy(w, resp.Body)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		s.logger.Error("[Server] Streaming %s for build %s failed: %v", action.Label, rec.ID, err)
	}
	s.record(r, res)
}

// record stores the outcome in the export history. It runs after the
// response is written, so it detaches from the request's cancellation.
func (s *Server) record(r *http.Request, res *actions.Result) {
	s.pipeline.Metrics.RecordExport(string(res.Action.Kind), res.OK(), res.Bytes)
	s.pipeline.Record(context.WithoutCancel(r.Context()), []*actions.Result{res})
}

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	exports, err := s.pipeline.Store.ListExports(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if exports == nil {
		exports = []contracts.ExportResult{}
	}
	writeJSON(w, http.StatusOK, exports)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	for _, a := range req.Actions {
		if _, err := actions.ParseKind(a); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
	}

	requestID, err := s.pipeline.Submit(r.Context(), strings.TrimSpace(req.URL), req.Actions)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, provider.ErrInvalidURL) {
			status = http.StatusBadRequest
		}
		writeError(w, r, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"request_id": requestID})
}
