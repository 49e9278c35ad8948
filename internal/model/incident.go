// Package model defines the core data types shared across CyberFlux.
package model

// Severity classifies how urgent an incident is.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// ProposedAction is the remediation suggested for an incident.
type ProposedAction struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EvidenceLine is one log line backing an incident.
type EvidenceLine struct {
	Time   string `json:"time"`
	Source string `json:"source"`
	Line   string `json:"line"`
}

// Incident is a detected security incident with its supporting evidence.
// Fixture incidents are immutable and have no lifecycle.
type Incident struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Summary        string         `json:"summary"`
	Severity       Severity       `json:"severity"`
	ProposedAction ProposedAction `json:"proposed_action"`
	Evidence       []EvidenceLine `json:"evidence"`
}

// FixtureIncidents returns the static demo incidents. Every call returns
// the same two records; callers must not mutate them.
func FixtureIncidents() []Incident {
	return []Incident{
		{
			ID:       "INC-2041",
			Title:    "Suspected data exfiltration over DNS",
			Summary:  "Sustained high-entropy TXT queries from an internal host to a newly registered domain, consistent with DNS tunneling.",
			Severity: SeverityHigh,
			ProposedAction: ProposedAction{
				Title:       "Isolate host and block domain",
				Description: "Quarantine 10.20.4.17 from the internal network and sinkhole the destination domain at the resolver.",
			},
			Evidence: []EvidenceLine{
				{Time: "2025-03-04T09:12:41Z", Source: "dns-resolver-01", Line: "query TXT 7a9f3c...x1.updates-cdn-sync.net from 10.20.4.17"},
				{Time: "2025-03-04T09:12:44Z", Source: "dns-resolver-01", Line: "query TXT b44e01...x2.updates-cdn-sync.net from 10.20.4.17"},
				{Time: "2025-03-04T09:14:02Z", Source: "netflow-gw", Line: "10.20.4.17 -> 203.0.113.88 udp/53 bytes=2.1M flows=412"},
			},
		},
		{
			ID:       "INC-2042",
			Title:    "Brute-force attempts against VPN gateway",
			Summary:  "Repeated authentication failures for multiple accounts from a single external address within a five minute window.",
			Severity: SeverityMedium,
			ProposedAction: ProposedAction{
				Title:       "Rate-limit source and enforce MFA",
				Description: "Temporarily block 198.51.100.23 at the perimeter and confirm MFA is enforced for the targeted accounts.",
			},
			Evidence: []EvidenceLine{
				{Time: "2025-03-04T11:03:10Z", Source: "vpn-gw", Line: "auth failure user=jmorris src=198.51.100.23"},
				{Time: "2025-03-04T11:03:12Z", Source: "vpn-gw", Line: "auth failure user=akemp src=198.51.100.23"},
				{Time: "2025-03-04T11:07:55Z", Source: "vpn-gw", Line: "auth failure user=jmorris src=198.51.100.23 (attempt 38)"},
			},
		},
	}
}
