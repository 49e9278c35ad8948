package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"cyberflux/internal/ingest"
	"cyberflux/internal/logging"
	"cyberflux/internal/report"

	"github.com/google/uuid"
)

// parseReportQuery reads the shared generate/direct query parameters.
// csv_filename and csv are accepted interchangeably.
func parseReportQuery(r *http.Request, defaultAI bool) report.Request {
	q := r.URL.Query()

	csv := q.Get("csv_filename")
	if csv == "" {
		csv = q.Get("csv")
	}
	if csv == "" {
		csv = "logs.csv"
	}

	includeAI := defaultAI
	if v := q.Get("include_ai"); v != "" {
		includeAI = v == "true" || v == "1"
	}

	nrows := 0
	if v := q.Get("nrows"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			nrows = n
		}
	}

	return report.Request{CSVFile: csv, IncludeAI: includeAI, NRows: nrows}
}

// handleGenerate produces a report and returns metadata with a download
// URL. The PDF itself stays on disk under the report tmp dir.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	reqLog := logging.WithRequestID(logging.CategoryReport, uuid.NewString()[:8])
	req := parseReportQuery(r, false)
	reqLog.Info("generate: csv=%s include_ai=%t nrows=%d", req.CSVFile, req.IncludeAI, req.NRows)

	meta, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, ingest.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		reqLog.Error("generate failed: %v", err)
		writeError(w, http.StatusInternalServerError, "report generation failed", err.Error())
		return
	}

	filename := filepath.Base(meta.PDFPath)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"id":                 meta.ID,
		"pdf_path":           filename,
		"filename":           filename,
		"num_records":        meta.NumRecords,
		"suspicious_records": meta.Suspicious,
		"figures":            meta.Figures,
		"llm_trust":          meta.LLMTrust,
		"download":           "/report/download?path=" + filename,
	})
}

// handleDownload serves a previously generated PDF from the tmp dir.
// Only bare file names are accepted so requests cannot walk out of it.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing path parameter", "")
		return
	}
	if filepath.Base(path) != path {
		writeError(w, http.StatusBadRequest, "invalid file path", "")
		return
	}

	full, err := filepath.Abs(filepath.Join(s.cfg.Report.TmpDir, path))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid download path", "")
		return
	}
	tmpDir, err := filepath.Abs(s.cfg.Report.TmpDir)
	if err != nil || filepath.Dir(full) != tmpDir {
		writeError(w, http.StatusBadRequest, "invalid download path", "")
		return
	}

	if _, err := os.Stat(full); err != nil {
		writeError(w, http.StatusNotFound, "report file not found: "+path, "")
		return
	}

	s.servePDF(w, r, full)
}

// handleDirect generates a report and returns the PDF in one call.
func (s *Server) handleDirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	meta, err := s.generator.Generate(r.Context(), parseReportQuery(r, false))
	if err != nil {
		if errors.Is(err, ingest.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		writeError(w, http.StatusInternalServerError, "PDF not produced", err.Error())
		return
	}

	s.servePDF(w, r, meta.PDFPath)
}

// handleDirectDebug behaves like direct but surfaces the full error detail
// in the JSON body, for development.
func (s *Server) handleDirectDebug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	meta, err := s.generator.Generate(r.Context(), parseReportQuery(r, false))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error(), err.Error())
		return
	}

	s.servePDF(w, r, meta.PDFPath)
}

func (s *Server) servePDF(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

// handleDatasets lists the CSV files available for report generation.
func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	names := []string{}
	if s.datasets != nil {
		names = append(names, s.datasets.List()...)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": names})
}
