package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cyberflux/internal/faithfulness"
	"cyberflux/internal/ingest"

	"github.com/go-pdf/fpdf"
)

// pdfInput carries everything the PDF needs; keeps WritePDF testable
// without a full generator run.
type pdfInput struct {
	CSVFile     string
	GeneratedAt time.Time
	Metrics     ingest.Metrics
	Summary     Summary
	IncludeAI   bool
	Evidence    []ingest.EvidenceRow
	Figures     []string
	FiguresDir  string
	Trust       *faithfulness.Report
}

// WritePDF assembles the report document at path.
func WritePDF(path string, in pdfInput) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 12)

	writeCover(pdf, in)
	writeExecSummary(pdf, in.Metrics)
	if in.IncludeAI {
		writeLLMSection(pdf, in.Summary, in.Trust)
	}
	writeFigures(pdf, in.FiguresDir, in.Figures)
	writeEvidence(pdf, in.Evidence)
	writeAttackTable(pdf, in.Metrics)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func writeCover(pdf *fpdf.Fpdf, in pdfInput) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(0, 12, "CyberFluxAI - Incident Summary", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Source: "+filepath.Base(in.CSVFile), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+in.GeneratedAt.UTC().Format(time.RFC3339)+" UTC", "", 1, "C", false, 0, "")
	pdf.Ln(8)
	pdf.SetTextColor(0, 0, 0)
}

func writeExecSummary(pdf *fpdf.Fpdf, m ingest.Metrics) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Executive Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	left := []string{
		fmt.Sprintf("Total records: %d", m.TotalRows),
		fmt.Sprintf("Suspicious records: %d", m.SuspiciousRows),
		fmt.Sprintf("Unique attack types: %d", m.UniqueAttackTypes),
	}
	right := []string{
		"Top src (sample): " + topSample(m.TopSrcIPs),
		"Top dst (sample): " + topSample(m.TopDstIPs),
	}
	twoColumns(pdf, left, right)
	pdf.Ln(6)
}

// twoColumns prints paired rows side by side.
func twoColumns(pdf *fpdf.Fpdf, left, right []string) {
	pageW, _ := pdf.GetPageSize()
	colW := (pageW-24)/2 - 6

	rows := len(left)
	if len(right) > rows {
		rows = len(right)
	}
	for i := 0; i < rows; i++ {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		x, y := pdf.GetXY()
		pdf.MultiCell(colW, 6, l, "", "", false)
		pdf.SetXY(x+colW+6, y)
		pdf.MultiCell(colW, 6, r, "", "", false)
		pdf.SetXY(x, y+6)
	}
}

func topSample(values []ingest.ValueCount) string {
	if len(values) > 3 {
		values = values[:3]
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s (%d)", v.Value, v.Count)
	}
	return strings.Join(parts, ", ")
}

func writeLLMSection(pdf *fpdf.Fpdf, s Summary, trust *faithfulness.Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Executive Summary (LLM)", "", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	text := s.Summary
	if text == "" {
		text = s.Raw
	}
	if text == "" {
		text = "(no LLM summary)"
	}
	pdf.MultiCell(0, 6, text, "", "", false)
	pdf.Ln(4)

	if len(s.Findings) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, "Ranked Findings", "", 1, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for i, f := range s.Findings {
			pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, f), "", "", false)
			if cause, ok := s.RootCauses[f]; ok {
				pdf.SetTextColor(110, 110, 110)
				pdf.MultiCell(0, 5, "   root cause: "+cause, "", "", false)
				pdf.SetTextColor(0, 0, 0)
			}
		}
		pdf.Ln(4)
	}

	if len(s.Recommendations) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, "Recommendations (LLM)", "", 1, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, rec := range s.Recommendations {
			pdf.MultiCell(0, 6, fmt.Sprintf("- %s (evidence: %v)", rec.Text, rec.EvidenceIDs), "", "", false)
		}
		pdf.Ln(4)
	}

	if len(s.ResidualRisks) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, "Residual Risks", "", 1, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, risk := range s.ResidualRisks {
			pdf.MultiCell(0, 6, "- "+risk, "", "", false)
		}
		pdf.Ln(4)
	}

	if trust != nil {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.MultiCell(0, 5, fmt.Sprintf("Faithfulness: trust %.2f, %d/%d IPs verified, %d unsupported claims",
			trust.TrustScore, trust.IPCheck.IPsVerified, len(trust.IPCheck.IPsClaimed), len(trust.Unsupported)), "", "", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}
}

func writeFigures(pdf *fpdf.Fpdf, dir string, figures []string) {
	pageW, _ := pdf.GetPageSize()
	maxW := pageW - 24

	for _, name := range figures {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		title := titleCase(strings.ReplaceAll(strings.TrimSuffix(name, filepath.Ext(name)), "_", " "))
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "", false, 0, "")
		pdf.ImageOptions(path, -1, -1, maxW, 0, true, fpdf.ImageOptions{}, 0, "")
		pdf.Ln(6)
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func writeEvidence(pdf *fpdf.Fpdf, evidence []ingest.EvidenceRow) {
	if len(evidence) == 0 {
		return
	}
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Sample Evidence (top rows)", "", 1, "", false, 0, "")
	pdf.SetFont("Courier", "", 9)
	for i, e := range evidence {
		header := fmt.Sprintf("[%d] %s | %s -> %s | bytes=%s | attackType=%s",
			i, e.Time, e.Src, e.Dst, ingest.PrettyBytes(e.Bytes), e.AttackType)
		pdf.MultiCell(0, 5, header, "", "", false)
		pdf.SetTextColor(110, 110, 110)
		pdf.MultiCell(0, 5, " raw: "+ingest.SafeTruncate(e.Raw, 140), "", "", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(1)
	}
}

func writeAttackTable(pdf *fpdf.Fpdf, m ingest.Metrics) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Top Attack Types", "", 1, "", false, 0, "")

	if len(m.TopAttackTypes) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, "No attackType column found or empty.", "", "", false)
		return
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(120, 7, "Attack Type", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 7, "Count", "1", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, v := range m.TopAttackTypes {
		pdf.CellFormat(120, 6, v.Value, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", v.Count), "1", 1, "", false, 0, "")
	}
}
