package report

import (
	"context"
	"fmt"

	"cyberflux/internal/ingest"
	"cyberflux/internal/llm"
	"cyberflux/internal/logging"
)

// Recommendation is one remediation step with the evidence backing it.
type Recommendation struct {
	Text        string `json:"text"`
	EvidenceIDs []int  `json:"evidence_ids"`
}

// Summary is the parsed model output used in reports and sessions.
type Summary struct {
	Summary         string            `json:"summary,omitempty"`
	Findings        []string          `json:"findings,omitempty"`
	RootCauses      map[string]string `json:"root_causes,omitempty"`
	Recommendations []Recommendation  `json:"recommendations,omitempty"`
	ResidualRisks   []string          `json:"residual_risks,omitempty"`
	Raw             string            `json:"summary_raw,omitempty"`
	UsedLLM         bool              `json:"used_llm"`
}

// Text flattens the summary and recommendation texts for faithfulness
// checks and follow-up prompts.
func (s Summary) Text() string {
	out := s.Summary
	if out == "" {
		out = s.Raw
	}
	for _, rec := range s.Recommendations {
		out += " " + rec.Text
	}
	return out
}

// GenerateSummary asks the model for a structured summary. Without a
// configured client a deterministic summary is produced from the metrics,
// so report generation works offline.
func GenerateSummary(ctx context.Context, client llm.Client, metrics ingest.Metrics, evidence []ingest.EvidenceRow, sampleText string) Summary {
	if client == nil || !client.Configured() {
		return fallbackSummary(metrics, evidence)
	}

	prompt := BuildSummaryPrompt(metrics, evidence, sampleText)
	raw, err := client.Complete(ctx, prompt)
	if err != nil {
		logging.ReportError("summary generation failed, falling back: %v", err)
		s := fallbackSummary(metrics, evidence)
		s.Raw = fmt.Sprintf("LLM call error: %v", err)
		return s
	}

	parsed := llm.ExtractJSON(raw)
	s := summaryFromMap(parsed)
	s.UsedLLM = true
	if s.Summary == "" && s.Raw == "" {
		s.Raw = raw
	}
	return s
}

// fallbackSummary mirrors the shape of a model answer using only computed
// metrics.
func fallbackSummary(metrics ingest.Metrics, evidence []ingest.EvidenceRow) Summary {
	top := ""
	if len(metrics.TopAttackTypes) > 0 {
		top = metrics.TopAttackTypes[0].Value
	}
	s := Summary{
		Summary: fmt.Sprintf("%d rows, %d unique attack types. Top: %s",
			metrics.TotalRows, metrics.UniqueAttackTypes, top),
	}
	if len(evidence) > 0 {
		s.Recommendations = []Recommendation{
			{Text: "Investigate top source IP (highest bytes).", EvidenceIDs: []int{0}},
			{Text: "Check large flows for possible exfiltration.", EvidenceIDs: []int{0}},
		}
	}
	return s
}

func summaryFromMap(m map[string]interface{}) Summary {
	var s Summary
	s.Summary, _ = m["summary"].(string)
	s.Raw, _ = m["summary_raw"].(string)
	s.Findings = stringSlice(m["findings"])
	s.ResidualRisks = stringSlice(m["residual_risks"])

	if causes, ok := m["root_causes"].(map[string]interface{}); ok {
		s.RootCauses = make(map[string]string, len(causes))
		for k, v := range causes {
			if str, ok := v.(string); ok {
				s.RootCauses[k] = str
			}
		}
	}

	if recs, ok := m["recommendations"].([]interface{}); ok {
		for _, r := range recs {
			rm, ok := r.(map[string]interface{})
			if !ok {
				continue
			}
			rec := Recommendation{}
			rec.Text, _ = rm["text"].(string)
			if ids, ok := rm["evidence_ids"].([]interface{}); ok {
				for _, id := range ids {
					if f, ok := id.(float64); ok {
						rec.EvidenceIDs = append(rec.EvidenceIDs, int(f))
					}
				}
			}
			if rec.Text != "" {
				s.Recommendations = append(s.Recommendations, rec)
			}
		}
	}
	return s
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
