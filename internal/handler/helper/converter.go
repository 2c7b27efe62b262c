package helper

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// FormatEvidence renders an evidence map as a stable "key=value" string
// for tabular exports. Keys are sorted so repeated exports diff cleanly.
func FormatEvidence(evidence entity.JSONMap) string {
	if len(evidence) == 0 {
		return ""
	}
	keys := make([]string, 0, len(evidence))
	for k := range evidence {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(evidence[k])))
	}
	return strings.Join(parts, "; ")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; render integers without decimals.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}

// ParseTimeRange parses from/to query values in RFC3339 or date-only form.
// Missing from defaults to the epoch; missing to defaults to now.
func ParseTimeRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now()

	if fromRaw != "" {
		parsed, err := parseFlexibleTime(fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' value %q: %w", fromRaw, err)
		}
		from = parsed
	}
	if toRaw != "" {
		parsed, err := parseFlexibleTime(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' value %q: %w", toRaw, err)
		}
		to = parsed
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("'to' must be after 'from'")
	}
	return from, to, nil
}

func parseFlexibleTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
