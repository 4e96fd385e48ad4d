package validate

// MetricsSchema is the machine-readable contract for model output. It
// is rendered verbatim into prompts and mirrored by the field checks in
// this package.
const MetricsSchema = `{
  "type": "object",
  "required": ["metrics"],
  "properties": {
    "metrics": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value", "unit", "year", "page"],
        "properties": {
          "name": {"enum": ["Scope 1", "Scope 2 (location)", "Scope 2 (market)", "Scope 3"]},
          "value": {"type": "number"},
          "unit": {"enum": ["tCO2e", "ktCO2e", "MtCO2e"]},
          "year": {"type": "integer", "minimum": 1990, "maximum": 2100},
          "page": {"type": "integer", "minimum": 1},
          "snippet": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`
