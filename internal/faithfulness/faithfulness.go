// Package faithfulness cross-checks claims in generated summaries against
// the evidence rows the summarizer was shown. IPs, percentages, fractions
// and plain counts are parsed out of the text and verified against
// aggregates; unsupported claims lower the trust score.
package faithfulness

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cyberflux/internal/ingest"
)

var (
	ipPattern      = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	percentPattern = regexp.MustCompile(`\b\d{1,3}(?:\.\d+)?%`)
	fracPattern    = regexp.MustCompile(`(?i)(\d{1,3}(?:[\d,]*\d)?)\s*(?:out of|of)\s*(\d{1,3}(?:[\d,]*\d)?)`)
	numberPattern  = regexp.MustCompile(`\b\d+[,.]?\d*\b`)
)

// Claim is one numeric assertion parsed from summary text.
type Claim struct {
	Type  string  `json:"type"` // percent, fraction, number
	Text  string  `json:"text"`
	Value float64 `json:"value"`
	Num   float64 `json:"num,omitempty"`
	Den   float64 `json:"den,omitempty"`
}

// IPCheck is the result of verifying claimed IPs against evidence.
type IPCheck struct {
	Trust       float64  `json:"trust"`
	IPsClaimed  []string `json:"ips_claimed"`
	IPsVerified int      `json:"ips_verified"`
}

// Aggregates are the evidence-derived values claims are checked against.
type Aggregates struct {
	NRows          int            `json:"n_rows"`
	TotalBytes     float64        `json:"total_bytes"`
	SuspiciousRows int            `json:"suspicious_rows"`
	AttackCounts   map[string]int `json:"attack_counts"`
}

// Report is the full faithfulness assessment.
type Report struct {
	IPCheck     IPCheck    `json:"ip_check"`
	Aggregates  Aggregates `json:"aggregates"`
	Claims      []Claim    `json:"claims_parsed"`
	Supported   []Claim    `json:"supported_claims"`
	Unsupported []Claim    `json:"unsupported_claims"`
	TrustScore  float64    `json:"trust_score"`
}

// defaultTolerance is the relative slack for numeric comparisons.
const defaultTolerance = 0.1

// CheckIPs verifies every IP mentioned in the text against evidence
// src/dst addresses. Trust is verified/claimed, or 1.0 with no claims.
func CheckIPs(text string, evidence []ingest.EvidenceRow) IPCheck {
	seen := make(map[string]bool)
	for _, ip := range ipPattern.FindAllString(text, -1) {
		seen[ip] = true
	}

	claimed := make([]string, 0, len(seen))
	for ip := range seen {
		claimed = append(claimed, ip)
	}
	sort.Strings(claimed)

	verified := 0
	for _, ip := range claimed {
		for _, e := range evidence {
			if ip == e.Src || ip == e.Dst {
				verified++
				break
			}
		}
	}

	trust := 1.0
	if len(claimed) > 0 {
		trust = float64(verified) / float64(len(claimed))
	}
	return IPCheck{Trust: round2(trust), IPsClaimed: claimed, IPsVerified: verified}
}

// Check parses numeric claims from text and verifies them against the
// evidence. The trust score starts from the IP check and loses half a
// point per fully-unsupported claim ratio, floored at zero.
func Check(text string, evidence []ingest.EvidenceRow) Report {
	aggs := computeAggregates(evidence)
	claims := parseClaims(text)
	ipCheck := CheckIPs(text, evidence)

	var supported, unsupported []Claim
	for _, c := range claims {
		if claimSupported(c, text, aggs) {
			supported = append(supported, c)
		} else {
			unsupported = append(unsupported, c)
		}
	}

	trust := ipCheck.Trust
	if len(claims) > 0 {
		penalty := float64(len(unsupported)) / float64(len(claims))
		trust = math.Max(0, trust-penalty*0.5)
	}

	return Report{
		IPCheck:     ipCheck,
		Aggregates:  aggs,
		Claims:      claims,
		Supported:   supported,
		Unsupported: unsupported,
		TrustScore:  round2(trust),
	}
}

func computeAggregates(evidence []ingest.EvidenceRow) Aggregates {
	aggs := Aggregates{
		NRows:        len(evidence),
		AttackCounts: make(map[string]int),
	}
	for _, e := range evidence {
		aggs.TotalBytes += ingest.ParseByteValue(e.Bytes)
		atk := e.AttackType
		if atk == "" {
			atk = "unknown"
		}
		aggs.AttackCounts[atk]++
		if !strings.EqualFold(atk, "normal") && atk != "---" {
			aggs.SuspiciousRows++
		}
	}
	return aggs
}

func parseClaims(text string) []Claim {
	var claims []Claim

	for _, p := range percentPattern.FindAllString(text, -1) {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64); err == nil {
			claims = append(claims, Claim{Type: "percent", Text: p, Value: v})
		}
	}

	for _, m := range fracPattern.FindAllStringSubmatch(text, -1) {
		num, err1 := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		den, err2 := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		claims = append(claims, Claim{
			Type:  "fraction",
			Text:  m[0],
			Num:   num,
			Den:   den,
			Value: num / math.Max(1, den),
		})
	}

	ipSpans := ipPattern.FindAllStringIndex(text, -1)
	for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		// Percent values and IP octets are already handled above.
		if loc[1] < len(text) && text[loc[1]] == '%' {
			continue
		}
		if overlapsAny(loc, ipSpans) {
			continue
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64); err == nil {
			claims = append(claims, Claim{Type: "number", Text: raw, Value: v})
		}
	}

	return claims
}

func claimSupported(c Claim, text string, aggs Aggregates) bool {
	ctx := strings.ToLower(text)

	switch c.Type {
	case "fraction":
		if !mentionsRows(ctx) || aggs.NRows == 0 {
			return false
		}
		return math.Abs(c.Den-float64(aggs.NRows)) <= math.Max(1, float64(aggs.NRows)*defaultTolerance)

	case "percent":
		if strings.Contains(ctx, "suspicious") && aggs.NRows > 0 {
			actual := 100 * float64(aggs.SuspiciousRows) / float64(aggs.NRows)
			return math.Abs(actual-c.Value) <= math.Max(1, actual*defaultTolerance)
		}
		// Byte percentages are not cross-checked yet; do not penalize them.
		return strings.Contains(ctx, "bytes") && aggs.TotalBytes > 0

	case "number":
		if mentionsRows(ctx) && withinTolerance(c.Value, float64(aggs.NRows)) {
			return true
		}
		if (strings.Contains(ctx, "suspicious") || strings.Contains(ctx, "flagged")) &&
			withinTolerance(c.Value, float64(aggs.SuspiciousRows)) {
			return true
		}
		for atk, cnt := range aggs.AttackCounts {
			if math.Abs(c.Value-float64(cnt)) <= math.Max(1, float64(cnt)*defaultTolerance) &&
				strings.Contains(ctx, strings.ToLower(atk)) {
				return true
			}
		}
	}
	return false
}

func overlapsAny(loc []int, spans [][]int) bool {
	for _, s := range spans {
		if loc[0] < s[1] && loc[1] > s[0] {
			return true
		}
	}
	return false
}

func mentionsRows(ctx string) bool {
	return strings.Contains(ctx, "row") || strings.Contains(ctx, "flow") || strings.Contains(ctx, "record")
}

func withinTolerance(claimed, actual float64) bool {
	if actual == 0 {
		return claimed == 0
	}
	return math.Abs(claimed-actual)/math.Max(1, actual) <= defaultTolerance
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
