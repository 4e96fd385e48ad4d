package model

// Scope labels accepted in extraction output. Anything else is rejected
// by validation.
const (
	ScopeOne         = "Scope 1"
	ScopeTwoLocation = "Scope 2 (location)"
	ScopeTwoMarket   = "Scope 2 (market)"
	ScopeThree       = "Scope 3"
)

// Emission units accepted in extraction output.
const (
	UnitTonnes     = "tCO2e"
	UnitKilotonnes = "ktCO2e"
	UnitMegatonnes = "MtCO2e"
)

// Bounds for metric fields.
const (
	YearMin = 1990
	YearMax = 2100
)

// AllScopeNames returns the accepted scope labels in canonical order.
func AllScopeNames() []string {
	return []string{ScopeOne, ScopeTwoLocation, ScopeTwoMarket, ScopeThree}
}

// AllUnits returns the accepted emission units in canonical order.
func AllUnits() []string {
	return []string{UnitTonnes, UnitKilotonnes, UnitMegatonnes}
}

// ValidScopeName reports whether s is one of the accepted scope labels.
func ValidScopeName(s string) bool {
	switch s {
	case ScopeOne, ScopeTwoLocation, ScopeTwoMarket, ScopeThree:
		return true
	}
	return false
}

// ValidUnit reports whether u is one of the accepted emission units.
func ValidUnit(u string) bool {
	switch u {
	case UnitTonnes, UnitKilotonnes, UnitMegatonnes:
		return true
	}
	return false
}

// Metric is one extracted emissions figure. Name, Value, Unit, Year and
// Page are required; Snippet and Confidence are optional provenance.
type Metric struct {
	Name       string   `json:"name"`
	Value      float64  `json:"value"`
	Unit       string   `json:"unit"`
	Year       int      `json:"year"`
	Page       int      `json:"page"`
	Snippet    string   `json:"snippet,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Valid reports whether the metric satisfies every field constraint.
func (m Metric) Valid() bool {
	if !ValidScopeName(m.Name) || !ValidUnit(m.Unit) {
		return false
	}
	if m.Year < YearMin || m.Year > YearMax {
		return false
	}
	if m.Page < 1 {
		return false
	}
	if m.Confidence != nil && (*m.Confidence < 0 || *m.Confidence > 1) {
		return false
	}
	return true
}

// ExtractionPayload is the model's output contract and the system's final
// result. Dropped counts metrics removed by the exhausted-repair fallback;
// it is observability only and never serialized into the payload itself.
type ExtractionPayload struct {
	Metrics []Metric `json:"metrics"`
	Dropped int      `json:"-"`
}
