package dashboard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Status is the threshold classification of a metric value.
type Status string

const (
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"
	// StatusNone is used when a metric has no thresholds or no value.
	StatusNone Status = ""
)

// ResolveMetricValue looks key up in the grouped telemetry sections in
// priority order (device, environment, power, air quality) and then at
// the top level. Missing or non-numeric values report ok=false.
func ResolveMetricValue(telemetry map[string]any, key string) (float64, bool) {
	if telemetry == nil {
		return 0, false
	}
	for _, group := range metricGroups {
		section, ok := telemetry[group+"_metrics"].(map[string]any)
		if !ok {
			continue
		}
		if raw, ok := section[key]; ok {
			if v, ok := numericValue(raw); ok {
				return v, true
			}
		}
	}
	return numericValue(telemetry[key])
}

func numericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatMetricValue renders a value for display. Integer-valued or
// |v| >= 100 renders as a rounded integer, |v| < 10 with two decimals,
// anything else with one. A duration metric renders as days, hours and
// minutes, keeping the two largest non-zero units.
func FormatMetricValue(v float64, def *MetricDefinition) string {
	if def != nil && def.Format == FormatDuration {
		return formatDuration(v)
	}
	abs := math.Abs(v)
	switch {
	case v == math.Trunc(v) || abs >= 100:
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	case abs < 10:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
}

func formatDuration(seconds float64) string {
	total := int64(math.Max(seconds, 0))
	units := []struct {
		size   int64
		suffix string
	}{
		{86400, "d"},
		{3600, "h"},
		{60, "m"},
	}
	parts := make([]string, 0, 2)
	for _, u := range units {
		n := total / u.size
		total %= u.size
		if n > 0 && len(parts) < 2 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
		}
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}

// ClassifyStatus compares a value against the metric's thresholds.
// Danger wins over warning; both comparisons are inclusive.
func ClassifyStatus(v float64, def *MetricDefinition) Status {
	if def == nil || def.Thresholds == nil {
		return StatusNone
	}
	t := def.Thresholds
	if def.Direction == DirectionBelow {
		switch {
		case v <= t.Danger:
			return StatusDanger
		case v <= t.Warning:
			return StatusWarning
		default:
			return StatusGood
		}
	}
	switch {
	case v >= t.Danger:
		return StatusDanger
	case v >= t.Warning:
		return StatusWarning
	default:
		return StatusGood
	}
}
