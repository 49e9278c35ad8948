package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// EvidenceRow is a compact view of one log row, used in PDFs and prompts.
type EvidenceRow struct {
	Time       string `json:"time"`
	Src        string `json:"src"`
	Dst        string `json:"dst"`
	Proto      string `json:"proto"`
	Bytes      string `json:"bytes"`
	Packets    string `json:"packets"`
	AttackType string `json:"attackType"`
	Raw        string `json:"raw"`
}

// SampleEvidence returns up to k evidence rows. When a Bytes column yields
// numeric values the heaviest flows come first; otherwise the first k rows
// are taken in input order.
func SampleEvidence(t *Table, k int) []EvidenceRow {
	if k <= 0 || len(t.Rows) == 0 {
		return nil
	}

	indices := make([]int, len(t.Rows))
	for i := range indices {
		indices[i] = i
	}

	if t.HasColumn(colBytes) {
		weights := make([]float64, len(t.Rows))
		anyNumeric := false
		for i, row := range t.Rows {
			weights[i] = ParseByteValue(row[colBytes])
			if weights[i] > 0 {
				anyNumeric = true
			}
		}
		if anyNumeric {
			sort.SliceStable(indices, func(a, b int) bool {
				return weights[indices[a]] > weights[indices[b]]
			})
		}
	}

	if k > len(indices) {
		k = len(indices)
	}

	rows := make([]EvidenceRow, 0, k)
	for _, idx := range indices[:k] {
		row := t.Rows[idx]
		ts := row["Date first seen"]
		if ts == "" {
			ts = row["Date"]
		}
		rows = append(rows, EvidenceRow{
			Time:       ts,
			Src:        row[colSrcIP],
			Dst:        row[colDstIP],
			Proto:      row[colProto],
			Bytes:      row[colBytes],
			Packets:    row[colPackets],
			AttackType: row[colAttackType],
			Raw:        joinRaw(t.Columns, row),
		})
	}
	return rows
}

// FormatEvidence renders evidence rows as the numbered lines embedded into
// summarization prompts: "[i] time | src -> dst | bytes=... | attackType=...".
func FormatEvidence(rows []EvidenceRow) string {
	lines := make([]string, len(rows))
	for i, e := range rows {
		lines[i] = fmt.Sprintf("[%d] %s | %s -> %s | bytes=%s | attackType=%s",
			i, e.Time, e.Src, e.Dst, e.Bytes, e.AttackType)
	}
	return strings.Join(lines, "\n")
}

func joinRaw(columns []string, row Row) string {
	vals := make([]string, len(columns))
	for i, c := range columns {
		vals[i] = row[c]
	}
	return strings.Join(vals, " | ")
}
