// Package validate checks model output against the metrics contract.
//
// Checks run over generically decoded JSON rather than typed structs so
// that one malformed item yields readable, indexed error strings for
// the repair prompt instead of a decode failure for the whole payload.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/verdant-group/esg-cli/internal/model"
)

// Validate checks a decoded payload. An empty result means valid. Each
// violation is one string of the form "metrics[i] <reason>"; structural
// failures at the top level return a single error and skip item checks.
func Validate(raw any) []string {
	obj, ok := raw.(map[string]any)
	if !ok {
		return []string{"payload must be a JSON object"}
	}
	arr, ok := obj["metrics"].([]any)
	if !ok {
		return []string{`payload must contain a "metrics" array`}
	}

	var errs []string
	for i, item := range arr {
		for _, reason := range MetricErrors(item) {
			errs = append(errs, fmt.Sprintf("metrics[%d] %s", i, reason))
		}
	}
	return errs
}

// MetricErrors returns the constraint violations for one metrics item.
// A non-object item reports a single "is not an object" reason with no
// field-level checks.
func MetricErrors(item any) []string {
	m, ok := item.(map[string]any)
	if !ok {
		return []string{"is not an object"}
	}

	var reasons []string
	if name, ok := m["name"].(string); !ok || !model.ValidScopeName(name) {
		reasons = append(reasons, "name must be one of: "+strings.Join(model.AllScopeNames(), ", "))
	}
	if _, ok := toFloat64(m["value"]); !ok {
		reasons = append(reasons, "value must be a number")
	}
	if unit, ok := m["unit"].(string); !ok || !model.ValidUnit(unit) {
		reasons = append(reasons, "unit must be one of: "+strings.Join(model.AllUnits(), ", "))
	}
	if y, ok := toInt(m["year"]); !ok || y < model.YearMin || y > model.YearMax {
		reasons = append(reasons, fmt.Sprintf("year must be an integer between %d and %d", model.YearMin, model.YearMax))
	}
	if p, ok := toInt(m["page"]); !ok || p < 1 {
		reasons = append(reasons, "page must be an integer >= 1")
	}
	if c, present := m["confidence"]; present {
		if f, ok := toFloat64(c); !ok || f < 0 || f > 1 {
			reasons = append(reasons, "confidence must be a number between 0 and 1")
		}
	}
	if s, present := m["snippet"]; present {
		if _, ok := s.(string); !ok {
			reasons = append(reasons, "snippet must be a string")
		}
	}
	return reasons
}

// MetricsArray pulls the metrics slice out of a decoded payload. nil if
// the payload is not structurally sound.
func MetricsArray(raw any) []any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	arr, _ := obj["metrics"].([]any)
	return arr
}

// ToMetric converts one metrics item into its typed form. ok is false
// when the item violates any constraint.
func ToMetric(item any) (model.Metric, bool) {
	if len(MetricErrors(item)) > 0 {
		return model.Metric{}, false
	}
	m := item.(map[string]any)

	out := model.Metric{
		Name: m["name"].(string),
		Unit: m["unit"].(string),
	}
	out.Value, _ = toFloat64(m["value"])
	out.Year, _ = toInt(m["year"])
	out.Page, _ = toInt(m["page"])
	if s, ok := m["snippet"].(string); ok {
		out.Snippet = s
	}
	if c, ok := toFloat64(m["confidence"]); ok {
		out.Confidence = &c
	}
	return out, true
}

// toFloat64 accepts the numeric shapes JSON decoding and tests produce.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toInt accepts only integral numbers.
func toInt(v any) (int, bool) {
	f, ok := toFloat64(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
