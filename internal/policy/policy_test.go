package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAutorun(t *testing.T) {
	cases := []struct {
		name   string
		action Action
		asset  AssetContext
		want   bool
	}{
		{
			name:   "low impact on normal asset",
			action: Action{Type: "block_ip", ImpactEstimate: 2},
			asset:  AssetContext{},
			want:   true,
		},
		{
			name:   "isolate critical asset denied",
			action: Action{Type: "isolate_host", ImpactEstimate: 1},
			asset:  AssetContext{Critical: true},
			want:   false,
		},
		{
			name:   "isolate non-critical asset allowed",
			action: Action{Type: "isolate_host", ImpactEstimate: 3},
			asset:  AssetContext{},
			want:   true,
		},
		{
			name:   "impact above ceiling denied",
			action: Action{Type: "block_ip", ImpactEstimate: 6},
			asset:  AssetContext{},
			want:   false,
		},
		{
			name:   "impact at ceiling allowed",
			action: Action{Type: "block_ip", ImpactEstimate: 5},
			asset:  AssetContext{},
			want:   true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAutorun(tc.action, tc.asset))
		})
	}
}
