package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cyberflux/internal/ingest"
	"cyberflux/internal/report"
	"cyberflux/internal/store"
)

type sessionStartRequest struct {
	CSVFilename string `json:"csv_filename"`
	NRows       int    `json:"nrows"`
}

type sessionAskRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// handleSessionStart opens a follow-up session: the dataset is summarized
// once and the summary plus evidence index become the session context.
func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.CSVFilename == "" {
		req.CSVFilename = "logs.csv"
	}

	table, err := ingest.Load(s.cfg.Report.DataDir, req.CSVFilename, req.NRows)
	if err != nil {
		if errors.Is(err, ingest.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load dataset", err.Error())
		return
	}

	metrics := ingest.ComputeMetrics(table)
	evidence := ingest.SampleEvidence(table, s.cfg.Report.EvidenceRows)
	summary := report.GenerateSummary(r.Context(), s.client, metrics, evidence, table.SampleText(s.cfg.Report.SampleRows))

	sess, err := s.sessions.Start(r.Context(), summary.Text(), evidence, s.embedder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"summary":    summary,
	})
}

// handleSessionAsk answers one follow-up question in a session.
func (s *Server) handleSessionAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req sessionAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "session_id and question are required", "")
		return
	}

	answer, err := s.sessions.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		if strings.Contains(err.Error(), "unknown session") {
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to answer question", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": req.SessionID,
		"answer":     answer,
	})
}

// handleSessionTurns returns the accumulated turns of a session.
func (s *Server) handleSessionTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session_id parameter", "")
		return
	}

	turns, err := s.sessions.Turns(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return
	}
	if turns == nil {
		turns = []store.SessionTurn{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"turns":      turns,
	})
}
