package server

import (
	"encoding/json"
	"io"
	"net/http"

	"cyberflux/internal/model"
	"cyberflux/internal/policy"
)

// handleIncidents serves the fixed incident fixtures used by demo UIs.
// The same two records come back on every request.
func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"incidents": model.FixtureIncidents(),
	})
}

// handleActionBench is the generic action sink: POST echoes the received
// body back, GET reports readiness.
func (s *Server) handleActionBench(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body", err.Error())
			return
		}

		var result interface{}
		if len(body) == 0 || json.Unmarshal(body, &result) != nil {
			result = string(body)
		}
		resp := map[string]interface{}{
			"status": "ok",
			"saved":  true,
			"result": result,
		}
		if allowed, ok := evaluateAutorun(body); ok {
			resp["autorun"] = allowed
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// evaluateAutorun runs the policy gate when the submitted payload carries
// a structured action. Payloads without one are stored as-is.
func evaluateAutorun(body []byte) (allowed, ok bool) {
	var payload struct {
		Action *policy.Action      `json:"action"`
		Asset  policy.AssetContext `json:"asset"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Action == nil {
		return false, false
	}
	return policy.CanAutorun(*payload.Action, payload.Asset), true
}
