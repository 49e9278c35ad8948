package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a JSON object from model output. The whole blob is
// tried first; failing that, the outermost {...} span is extracted, which
// handles markdown fences and prose around the object. When neither parses
// the raw text is preserved under "summary_raw" so callers never lose the
// model's answer.
func ExtractJSON(blob string) map[string]interface{} {
	blob = strings.TrimSpace(blob)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &out); err == nil {
		return out
	}

	start := strings.Index(blob, "{")
	end := strings.LastIndex(blob, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(blob[start:end+1]), &out); err == nil {
			return out
		}
	}

	return map[string]interface{}{"summary_raw": blob}
}
