package ingest

import (
	"sort"
	"strings"
	"time"
)

// Column names recognized in flow-log datasets.
const (
	colAttackType = "attackType"
	colClass      = "class"
	colSrcIP      = "Src IP Addr"
	colDstIP      = "Dst IP Addr"
	colProto      = "Proto"
	colBytes      = "Bytes"
	colPackets    = "Packets"
)

// dateColumnCandidates are checked in order; the first present wins.
var dateColumnCandidates = []string{"Date first seen", "Date", "timestamp", "time", "datetime"}

// timestampLayouts tried when bucketing the timeline.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ValueCount is one ranked (value, occurrences) pair.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TimePoint is one hourly bucket of the event timeline.
type TimePoint struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

// Metrics are the lightweight aggregates shown in reports and handed to the
// summarizer. All fields are JSON-serializable.
type Metrics struct {
	TotalRows         int          `json:"total_rows"`
	UniqueAttackTypes int          `json:"unique_attack_types"`
	SuspiciousRows    int          `json:"suspicious_rows"`
	TopAttackTypes    []ValueCount `json:"top_attack_types"`
	TopSrcIPs         []ValueCount `json:"top_src_ips"`
	TopDstIPs         []ValueCount `json:"top_dst_ips"`
	DateColumn        string       `json:"date_column,omitempty"`
	Timeline          []TimePoint  `json:"timeline_sample,omitempty"`
}

// timelineTail bounds the timeline sample for compactness.
const timelineTail = 48

// ComputeMetrics derives summary aggregates from a parsed table.
func ComputeMetrics(t *Table) Metrics {
	m := Metrics{TotalRows: len(t.Rows)}

	if t.HasColumn(colAttackType) {
		counts := countValues(t, colAttackType, "unknown")
		m.UniqueAttackTypes = len(counts)
		m.TopAttackTypes = topN(counts, 10)
	}

	if t.HasColumn(colClass) {
		for _, row := range t.Rows {
			if !equalsNormal(row[colClass]) {
				m.SuspiciousRows++
			}
		}
	}

	if t.HasColumn(colSrcIP) {
		m.TopSrcIPs = topN(countValues(t, colSrcIP, ""), 10)
	}
	if t.HasColumn(colDstIP) {
		m.TopDstIPs = topN(countValues(t, colDstIP, ""), 10)
	}

	for _, cand := range dateColumnCandidates {
		if t.HasColumn(cand) {
			m.DateColumn = cand
			break
		}
	}
	if m.DateColumn != "" {
		m.Timeline = hourlyTimeline(t, m.DateColumn)
	}

	return m
}

// countValues tallies non-empty values of a column; empty values take the
// fallback label when one is given, otherwise they are skipped.
func countValues(t *Table, col, fallback string) map[string]int {
	counts := make(map[string]int)
	for _, row := range t.Rows {
		v := row[col]
		if v == "" {
			if fallback == "" {
				continue
			}
			v = fallback
		}
		counts[v]++
	}
	return counts
}

// topN ranks counts descending, ties broken lexically for determinism.
func topN(counts map[string]int, n int) []ValueCount {
	ranked := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		ranked = append(ranked, ValueCount{Value: v, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Value < ranked[j].Value
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// hourlyTimeline buckets parseable timestamps per hour and keeps the
// trailing timelineTail points.
func hourlyTimeline(t *Table, col string) []TimePoint {
	buckets := make(map[time.Time]int)
	for _, row := range t.Rows {
		ts, ok := parseTimestamp(row[col])
		if !ok {
			continue
		}
		buckets[ts.Truncate(time.Hour)]++
	}
	if len(buckets) == 0 {
		return nil
	}

	points := make([]TimePoint, 0, len(buckets))
	for h, c := range buckets {
		points = append(points, TimePoint{Hour: h, Count: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Hour.Before(points[j].Hour) })

	if len(points) > timelineTail {
		points = points[len(points)-timelineTail:]
	}
	return points
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func equalsNormal(s string) bool {
	return strings.EqualFold(s, "normal")
}
