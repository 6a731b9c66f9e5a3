// Package loosejson extracts a JSON object embedded in free-form model
// output. Small models routinely wrap their answer in markdown fences or
// surround it with prose; Extract tolerates both and never fails.
package loosejson

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Extract parses the first JSON object found in text. It strips markdown
// fences and leading/trailing prose, and returns an empty (non-nil) map on
// any parse failure. Callers own the retry policy.
func Extract(text string) map[string]any {
	s := strings.TrimSpace(text)
	if s == "" {
		return map[string]any{}
	}

	if strings.HasPrefix(s, "```") {
		if inner := innerObject(s); inner != "" {
			s = inner
		}
	}

	if m, ok := decodeObject(s); ok {
		return m
	}
	if inner := innerObject(s); inner != "" {
		if m, ok := decodeObject(inner); ok {
			return m
		}
	}
	return map[string]any{}
}

func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := sonic.UnmarshalString(s, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// innerObject returns the substring between the first '{' and the last '}',
// or "" when no balanced-looking object is present.
func innerObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
