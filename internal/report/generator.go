// Package report turns a flow-log CSV into a PDF incident report with
// metrics, charts, evidence and an LLM executive summary.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cyberflux/internal/config"
	"cyberflux/internal/faithfulness"
	"cyberflux/internal/ingest"
	"cyberflux/internal/llm"
	"cyberflux/internal/logging"
	"cyberflux/internal/store"

	"github.com/google/uuid"
)

// Meta is the metadata envelope returned by report generation.
type Meta struct {
	ID         string               `json:"id"`
	PDFPath    string               `json:"pdf_path"`
	NumRecords int                  `json:"num_records"`
	Suspicious int                  `json:"suspicious_records"`
	Figures    []string             `json:"figures"`
	LLMOutput  Summary              `json:"llm_output"`
	LLMTrust   *faithfulness.Report `json:"llm_trust,omitempty"`
	Metrics    ingest.Metrics       `json:"metrics"`
	Evidence   []ingest.EvidenceRow `json:"evidence,omitempty"`
}

// Request selects what to generate.
type Request struct {
	CSVFile   string
	IncludeAI bool
	NRows     int
}

// Generator owns the report pipeline dependencies.
type Generator struct {
	cfg    *config.Config
	client llm.Client
	store  *store.Store
}

// NewGenerator wires the pipeline together. The store may be nil when
// persistence is not wanted (CLI one-shots).
func NewGenerator(cfg *config.Config, client llm.Client, st *store.Store) *Generator {
	return &Generator{cfg: cfg, client: client, store: st}
}

// Generate runs the full pipeline: load, aggregate, summarize, verify,
// chart, assemble and persist. ingest.ErrNotFound passes through so
// handlers can map it to 404.
func (g *Generator) Generate(ctx context.Context, req Request) (*Meta, error) {
	timer := logging.StartTimer(logging.CategoryReport, "generate "+req.CSVFile)
	defer timer.Stop()

	csvFile := req.CSVFile
	if csvFile == "" {
		csvFile = "logs.csv"
	}

	table, err := ingest.Load(g.cfg.Report.DataDir, csvFile, req.NRows)
	if err != nil {
		return nil, err
	}

	metrics := ingest.ComputeMetrics(table)
	evidence := ingest.SampleEvidence(table, g.cfg.Report.EvidenceRows)
	sampleText := table.SampleText(g.cfg.Report.SampleRows)

	meta := &Meta{
		ID:         uuid.NewString(),
		NumRecords: metrics.TotalRows,
		Suspicious: metrics.SuspiciousRows,
		Metrics:    metrics,
		Evidence:   evidence,
	}

	if req.IncludeAI {
		meta.LLMOutput = GenerateSummary(ctx, g.client, metrics, evidence, sampleText)
		trust := faithfulness.Check(meta.LLMOutput.Text(), evidence)
		meta.LLMTrust = &trust
		logging.Report("summary for %s: used_llm=%t trust=%.2f", csvFile, meta.LLMOutput.UsedLLM, trust.TrustScore)
	}

	if err := os.MkdirAll(g.cfg.Report.TmpDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	figures, err := RenderCharts(g.cfg.Report.TmpDir, metrics)
	if err != nil {
		// Charts are decorative; a report without figures still ships.
		logging.ReportError("chart rendering failed, continuing without figures: %v", err)
		figures = nil
	}
	meta.Figures = figures

	ts := time.Now().UTC().Format("20060102T150405Z")
	pdfPath, err := filepath.Abs(filepath.Join(g.cfg.Report.TmpDir, fmt.Sprintf("cyberflux_report_%s.pdf", ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve report path: %w", err)
	}

	err = WritePDF(pdfPath, pdfInput{
		CSVFile:     csvFile,
		GeneratedAt: time.Now(),
		Metrics:     metrics,
		Summary:     meta.LLMOutput,
		IncludeAI:   req.IncludeAI,
		Evidence:    evidence,
		Figures:     figures,
		FiguresDir:  g.cfg.Report.TmpDir,
		Trust:       meta.LLMTrust,
	})
	if err != nil {
		return nil, err
	}
	meta.PDFPath = pdfPath

	if g.store != nil {
		trust := 0.0
		if meta.LLMTrust != nil {
			trust = meta.LLMTrust.TrustScore
		}
		rec := store.ReportRecord{
			ID:         meta.ID,
			CSVFile:    csvFile,
			PDFPath:    pdfPath,
			NumRecords: meta.NumRecords,
			Suspicious: meta.Suspicious,
			LLMTrust:   trust,
			UsedLLM:    meta.LLMOutput.UsedLLM,
		}
		if err := g.store.SaveReport(rec); err != nil {
			logging.StoreError("failed to persist report %s: %v", meta.ID, err)
		}
	}

	logging.Report("generated %s: %d records, %d suspicious, %d figures", filepath.Base(pdfPath), meta.NumRecords, meta.Suspicious, len(figures))
	return meta, nil
}
