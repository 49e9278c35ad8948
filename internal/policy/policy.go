// Package policy gates automated response actions.
package policy

import "cyberflux/internal/logging"

// Action is a proposed automated response.
type Action struct {
	Type           string `json:"type"`
	ImpactEstimate int    `json:"impact_estimate"`
}

// AssetContext describes the asset an action would touch.
type AssetContext struct {
	Critical bool `json:"critical"`
}

// maxAutorunImpact is the highest impact estimate eligible for autorun.
const maxAutorunImpact = 5

// CanAutorun decides whether an action may run without a human approver.
// Isolating a critical asset always needs sign-off, as does anything with
// an impact estimate above the autorun ceiling.
func CanAutorun(action Action, asset AssetContext) bool {
	if action.Type == "isolate_host" && asset.Critical {
		logging.Report("autorun denied: isolate_host on critical asset")
		return false
	}
	if action.ImpactEstimate > maxAutorunImpact {
		logging.Report("autorun denied: impact %d exceeds ceiling", action.ImpactEstimate)
		return false
	}
	return true
}
