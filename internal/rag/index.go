package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"cyberflux/internal/ingest"
	"cyberflux/internal/logging"
)

// Index holds embedded evidence rows for retrieval. When built without an
// embedder it falls back to lexical overlap scoring.
type Index struct {
	rows     []ingest.EvidenceRow
	vectors  [][]float32
	embedder Embedder
}

// rowText flattens an evidence row into the text that gets embedded.
func rowText(e ingest.EvidenceRow) string {
	var parts []string
	for _, kv := range [][2]string{
		{"time", e.Time},
		{"src", e.Src},
		{"dst", e.Dst},
		{"proto", e.Proto},
		{"bytes", e.Bytes},
		{"attackType", e.AttackType},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+":"+kv[1])
		}
	}
	return strings.Join(parts, " | ")
}

// BuildIndex embeds the evidence rows. A nil embedder yields a
// lexical-only index rather than an error, so retrieval degrades instead
// of disappearing when no API key is configured.
func BuildIndex(ctx context.Context, embedder Embedder, rows []ingest.EvidenceRow) (*Index, error) {
	idx := &Index{rows: rows, embedder: embedder}
	if embedder == nil {
		logging.LLMDebug("rag: no embedder, using lexical retrieval over %d rows", len(rows))
		return idx, nil
	}

	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = rowText(r)
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	if len(vectors) != len(rows) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d rows", len(vectors), len(rows))
	}

	idx.vectors = vectors
	return idx, nil
}

// Retrieve returns the k rows most relevant to the query, most relevant
// first.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) ([]ingest.EvidenceRow, error) {
	if k <= 0 || len(idx.rows) == 0 {
		return nil, nil
	}
	if k > len(idx.rows) {
		k = len(idx.rows)
	}

	if idx.vectors == nil {
		return idx.lexicalRetrieve(query, k), nil
	}

	qv, err := idx.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(qv) == 0 {
		return nil, fmt.Errorf("no query embedding returned")
	}

	type scored struct {
		idx  int
		dist float64
	}
	ranked := make([]scored, len(idx.vectors))
	for i, v := range idx.vectors {
		ranked[i] = scored{idx: i, dist: l2Distance(qv[0], v)}
	}
	sort.Slice(ranked, func(a, b int) bool { return ranked[a].dist < ranked[b].dist })

	out := make([]ingest.EvidenceRow, k)
	for i := 0; i < k; i++ {
		out[i] = idx.rows[ranked[i].idx]
	}
	return out, nil
}

// lexicalRetrieve scores rows by case-insensitive token overlap with the
// query. Ties keep input order so results stay deterministic.
func (idx *Index) lexicalRetrieve(query string, k int) []ingest.EvidenceRow {
	qTokens := tokenize(query)

	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, len(idx.rows))
	for i, r := range idx.rows {
		rowTokens := tokenize(rowText(r) + " " + r.Raw)
		score := 0
		for tok := range qTokens {
			if rowTokens[tok] {
				score++
			}
		}
		ranked[i] = scored{idx: i, score: score}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	out := make([]ingest.EvidenceRow, k)
	for i := 0; i < k; i++ {
		out[i] = idx.rows[ranked[i].idx]
	}
	return out
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '|' || r == ':' || r == ',' || r == '\t' || r == '\n'
	}) {
		if tok != "" {
			tokens[tok] = true
		}
	}
	return tokens
}

func l2Distance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
