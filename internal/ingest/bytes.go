package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseByteValue normalizes byte-count fields that appear either as plain
// numbers or with metric suffixes ("2.5 M", "64.8 K"). Unparseable values
// become 0 so aggregations stay defined; previews keep the original string.
func ParseByteValue(s string) float64 {
	st := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if st == "" {
		return 0
	}

	lower := strings.ToLower(st)
	switch {
	case strings.HasSuffix(lower, "m") || strings.HasSuffix(lower, "mb"):
		num := strings.TrimSpace(strings.TrimRight(lower, "mb "))
		if v, err := strconv.ParseFloat(num, 64); err == nil {
			return v * 1_000_000
		}
		return 0
	case strings.HasSuffix(lower, "k") || strings.HasSuffix(lower, "kb"):
		num := strings.TrimSpace(strings.TrimRight(lower, "kb "))
		if v, err := strconv.ParseFloat(num, 64); err == nil {
			return v * 1_000
		}
		return 0
	}

	// Multi-segment strings like "2.5 M 10.3 M" are not a single value.
	if strings.ContainsAny(lower, "abcdefghijklmnopqrstuvwxyz") {
		return 0
	}

	v, err := strconv.ParseFloat(st, 64)
	if err != nil {
		return 0
	}
	return v
}

// PrettyBytes renders a byte-like value in a compact human form:
// "3.20 M", "512 B", "1.5 K". Unparseable input is truncated instead.
func PrettyBytes(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	n := ParseByteValue(s)
	if n == 0 && strings.TrimSpace(s) != "0" {
		return SafeTruncate(s, 40)
	}
	switch {
	case n >= 1_000_000 || n <= -1_000_000:
		return fmt.Sprintf("%.2f M", n/1_000_000)
	case n >= 1_000 || n <= -1_000:
		return fmt.Sprintf("%.1f K", n/1_000)
	default:
		return fmt.Sprintf("%d B", int64(n))
	}
}

// SafeTruncate shortens s to at most maxLen runes plus an ellipsis tail,
// preferring to cut at a comma, space or semicolon past 60% of the limit.
func SafeTruncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	head := runes[:maxLen]
	cut := maxLen
	for _, sep := range []rune{',', ' ', ';'} {
		if idx := lastIndexRune(head, sep); idx > maxLen*60/100 {
			cut = idx
			break
		}
	}
	return strings.TrimRight(string(head[:cut]), " ") + "..."
}

func lastIndexRune(rs []rune, sep rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == sep {
			return i
		}
	}
	return -1
}
