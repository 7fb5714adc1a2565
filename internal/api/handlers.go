package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"zencalcs-assistant/internal/analysis"
	"zencalcs-assistant/internal/chat"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/render"
	"zencalcs-assistant/internal/report"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type chatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []models.Message `json:"conversationHistory"`
}

type reportRequest struct {
	ConversationHistory []models.Message   `json:"conversationHistory"`
	Analysis            *models.ReportData `json:"analysis"`
}

type renderRequest struct {
	Text        string `json:"text"`
	Collapsible bool   `json:"collapsible"`
}

type renderResponse struct {
	HTML        string              `json:"html"`
	Collapsible *render.Collapsible `json:"collapsible,omitempty"`
}

type sessionResponse struct {
	SessionID string           `json:"sessionId"`
	State     chat.State       `json:"state"`
	History   []models.Message `json:"history"`
}

type turnResponse struct {
	Role     models.Role  `json:"role"`
	Response string       `json:"response"`
	Usage    models.Usage `json:"usage"`
	Error    string       `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writePDF(w http.ResponseWriter, art *report.Artifact) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.PDF)))
	w.Header().Set("X-Report-Id", art.ID)
	w.Header().Set("X-Chart-Failures", strconv.Itoa(art.ChartFailures))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.PDF)
}

// chat is the stateless chat endpoint: the client carries the history.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if s.deps.Model == nil {
		writeError(w, http.StatusInternalServerError, "API key not configured. Please add ANTHROPIC_API_KEY to the environment.")
		return
	}

	reply, err := s.deps.Model.Ask(r.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		metrics.ChatMessages.WithLabelValues("failed").Inc()
		status, msg := llm.HTTPStatus(err)
		s.logger.Error("chat request failed", map[string]interface{}{
			"error":     err.Error(),
			"errorCode": string(apperrors.CodeOf(err)),
		})
		writeError(w, status, msg)
		return
	}

	metrics.ChatMessages.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, models.ChatResponse{
		Response:       reply.Text,
		ConversationID: reply.ID,
		Usage:          reply.Usage,
	})
}

func (s *Server) analyzeConversation(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if !decode(w, r, &req) {
		return
	}
	if len(req.ConversationHistory) == 0 {
		writeJSON(w, http.StatusBadRequest, analysis.ErrorResponse{Error: analysis.MsgNoHistory})
		return
	}
	if s.deps.Analysis == nil {
		writeJSON(w, http.StatusServiceUnavailable, analysis.ErrorResponse{Error: analysis.MsgInternal, Message: "analysis is not configured"})
		return
	}

	data, err := s.deps.Analysis.Analyze(r.Context(), req.ConversationHistory)
	if err != nil {
		stdErr := apperrors.Normalize(err)
		s.logger.Error("conversation analysis failed", map[string]interface{}{
			"error":     err.Error(),
			"errorCode": string(stdErr.Code),
		})
		switch stdErr.Code {
		case apperrors.ErrCodeAnalysisParseFailed:
			raw, _ := stdErr.Metadata["rawResponse"].(string)
			writeJSON(w, http.StatusInternalServerError, analysis.ErrorResponse{Error: analysis.MsgParseFailed, RawResponse: raw})
		case apperrors.ErrCodeEmptyConversation:
			writeJSON(w, http.StatusBadRequest, analysis.ErrorResponse{Error: analysis.MsgNoHistory})
		default:
			writeJSON(w, http.StatusInternalServerError, analysis.ErrorResponse{Error: analysis.MsgInternal, Message: stdErr.Message})
		}
		return
	}

	writeJSON(w, http.StatusOK, analysis.Response{Success: true, Analysis: data, Timestamp: s.now().UTC()})
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		art *report.Artifact
		err error
	)
	switch {
	case req.Analysis != nil:
		art, err = s.deps.Reports.FromData(r.Context(), "", *req.Analysis)
	case len(req.ConversationHistory) > 0:
		art, err = s.deps.Reports.Generate(r.Context(), "", req.ConversationHistory)
	default:
		writeError(w, http.StatusBadRequest, chat.MsgNoHistory)
		return
	}
	if err != nil {
		s.reportFailed(w, err)
		return
	}
	writePDF(w, art)
}

func (s *Server) reportFailed(w http.ResponseWriter, err error) {
	s.logger.Error("report generation failed", map[string]interface{}{
		"error":     err.Error(),
		"errorCode": string(apperrors.CodeOf(err)),
	})
	writeError(w, http.StatusInternalServerError, chat.MsgReportFailed)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decode(w, r, &req) {
		return
	}

	html, err := s.deps.Renderer.Render(req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render text")
		return
	}
	resp := renderResponse{HTML: html}
	if req.Collapsible {
		c, err := s.deps.Renderer.RenderCollapsible(req.Text)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to render text")
			return
		}
		resp.Collapsible = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*chat.Controller, bool) {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	c, ok := s.deps.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return c, true
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "Sessions are not enabled")
		return
	}
	c := s.deps.Sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: c.ID(), State: c.State(), History: []models.Message{}})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	history := c.History()
	if history == nil {
		history = []models.Message{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: c.ID(), State: c.State(), History: history})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}

	turn, err := c.Send(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, "A response is already pending")
		return
	}

	// a failed turn is still an assistant message; the code lets clients
	// tell it apart without treating it as a transport failure
	resp := turnResponse{Role: models.RoleAssistant, Response: turn.Message, Usage: turn.Usage}
	if turn.Err != nil {
		resp.Error = string(apperrors.CodeOf(turn.Err))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) sessionReport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}

	out, err := c.GenerateReport(r.Context())
	if errors.Is(err, chat.ErrBusy) {
		writeError(w, http.StatusConflict, "A response is already pending")
		return
	}
	switch {
	case errors.Is(out.Err, chat.ErrNoHistory):
		writeError(w, http.StatusBadRequest, out.Message)
	case out.Err != nil:
		writeError(w, http.StatusInternalServerError, out.Message)
	default:
		writePDF(w, out.Artifact)
	}
}

func (s *Server) narrative(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}

	md, err := c.Narrative(r.Context())
	switch {
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, "A response is already pending")
		return
	case errors.Is(err, chat.ErrNoHistory):
		writeError(w, http.StatusBadRequest, chat.MsgNoHistory)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, chat.MsgReportFailed)
		return
	}

	html, err := s.deps.Renderer.Render(md)
	if err != nil {
		writeError(w, http.StatusInternalServerError, chat.MsgReportFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"markdown": md, "html": html})
}

// newCalculation clears the session. A non-empty conversation needs
// ?confirm=true.
func (s *Server) newCalculation(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	cleared, err := c.NewCalculation(func() bool { return confirmed })
	switch {
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, "A response is already pending")
	case !cleared:
		writeError(w, http.StatusConflict, chat.MsgConfirmNew)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// startWorkflow hands the session's conversation to the report process and
// returns immediately; the report-generated message announces the result.
func (s *Server) startWorkflow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Workflows == nil {
		writeError(w, http.StatusServiceUnavailable, "Workflow engine is not enabled")
		return
	}
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	history := c.History()
	if len(history) == 0 {
		writeError(w, http.StatusBadRequest, chat.MsgNoHistory)
		return
	}

	key, err := s.deps.Workflows.StartReport(r.Context(), c.ID(), map[string]interface{}{
		"conversationHistory": history,
	})
	if err != nil {
		s.logger.Error("report workflow not started", map[string]interface{}{
			"sessionId": c.ID(),
			"error":     err.Error(),
			"errorCode": string(apperrors.CodeOf(err)),
		})
		writeError(w, http.StatusBadGateway, "Report workflow could not be started")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"sessionId":          c.ID(),
		"processInstanceKey": key,
	})
}
