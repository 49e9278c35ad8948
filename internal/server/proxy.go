package server

import (
	"io"
	"net/http"
	"net/url"

	"cyberflux/internal/logging"
)

// handleReportProxy forwards a download request to the configured backend
// and relays the response verbatim. Status mapping:
//
//	upstream 200      -> 200 with body passthrough
//	upstream non-200  -> 502 with {error, status, body}
//	transport fault   -> 500 with {error, detail}
func (s *Server) handleReportProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	q := r.URL.Query()
	csv := q.Get("csv")
	if csv == "" {
		csv = "logs.csv"
	}
	includeAI := q.Get("include_ai")
	if includeAI == "" {
		includeAI = "true"
	}

	forward := url.Values{}
	forward.Set("csv", csv)
	forward.Set("include_ai", includeAI)
	if nrows := q.Get("nrows"); nrows != "" {
		forward.Set("nrows", nrows)
	}

	target := s.cfg.Proxy.BackendBase + "/report/direct?" + forward.Encode()
	logging.Proxy("forwarding to %s", target)

	client := &http.Client{Timeout: s.cfg.GetProxyTimeout()}
	defer client.CloseIdleConnections()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "proxy request failed", err.Error())
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		logging.ProxyError("upstream unreachable: %v", err)
		writeError(w, http.StatusInternalServerError, "proxy request failed", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		logging.ProxyError("upstream returned %d", resp.StatusCode)
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":  "upstream error",
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		disposition = `attachment; filename="report.pdf"`
	}
	w.Header().Set("Content-Disposition", disposition)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.ProxyError("relay interrupted: %v", err)
	}
}
