package report

import (
	"encoding/json"
	"strings"

	"cyberflux/internal/ingest"
)

// summaryInstruction is the fixed instruction block for report generation.
// The requested sections are stable so downstream parsing and the PDF
// layout can rely on them.
const summaryInstruction = `You are a concise cyber security analyst. Using ONLY the metrics, evidence and sample rows below, produce JSON with:
- summary: 2-4 sentence executive summary
- findings: ranked list of the most significant findings, most severe first
- evidence_snippets: the evidence line indexes that support each finding
- root_causes: mapping of each finding to its most likely root cause
- recommendations: list of objects like {"text": ..., "evidence_ids": [ints]} with remediation steps
- residual_risks: risks that remain even after the recommendations are applied

Return ONLY valid JSON.`

// BuildSummaryPrompt assembles the one-shot summarization prompt from the
// computed metrics, the formatted evidence lines and the bounded row sample.
func BuildSummaryPrompt(metrics ingest.Metrics, evidence []ingest.EvidenceRow, sampleText string) string {
	metricsJSON, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		metricsJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString(summaryInstruction)
	b.WriteString("\n\nMETRICS:\n")
	b.Write(metricsJSON)
	b.WriteString("\n\nEVIDENCE:\n")
	b.WriteString(ingest.FormatEvidence(evidence))
	if sampleText != "" {
		b.WriteString("\n\nSAMPLE ROWS:\n")
		b.WriteString(sampleText)
	}
	return b.String()
}
