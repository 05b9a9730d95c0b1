package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alt-coder/synthio/chatbot"
)

//go:embed web/index.html
var indexPage []byte

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response   string `json:"response"`
	SQLQuery   string `json:"sql_query,omitempty"`
	RowCount   int    `json:"row_count"`
	Blocked    bool   `json:"blocked"`
	Cached     bool   `json:"cached"`
	Success    bool   `json:"success"`
	RetryCount int    `json:"retry_count"`
	RunID      string `json:"run_id"`
	DurationMS int64  `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	result, err := s.bot.AskDetailed(r.Context(), req.Message)
	if err != nil {
		chatRequestsTotal.WithLabelValues("error").Inc()
		logrus.WithError(err).Error("chat request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	chatRequestDuration.Observe(time.Since(started).Seconds())
	chatRequestsTotal.WithLabelValues(outcome(result)).Inc()

	writeJSON(w, http.StatusOK, chatResponse{
		Response:   result.FinalResponse,
		SQLQuery:   result.SQLQuery,
		RowCount:   result.RowCount,
		Blocked:    result.Blocked,
		Cached:     result.Cached,
		Success:    result.Success,
		RetryCount: result.RetryCount,
		RunID:      result.RunID,
		DurationMS: result.Duration.Milliseconds(),
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"schema": s.bot.SchemaContext(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := s.bot.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		logrus.WithError(err).Warn("health check failed")
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"service":   "synthio",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

// outcome maps a result to the metrics label.
func outcome(result *chatbot.Result) string {
	switch {
	case result.Cached:
		return "cached"
	case result.Blocked:
		return "blocked"
	case !result.Success:
		return "failed"
	default:
		return "answered"
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("encoding response")
	}
}
