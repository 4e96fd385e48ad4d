package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verdant-group/esg-cli/internal/validate"
)

func TestSystemFixesContract(t *testing.T) {
	t.Parallel()

	got := System()
	assert.Contains(t, got, "ONLY valid JSON")
	assert.Contains(t, got, "Omit any metric you are not certain about")
}

func TestUserEmbedsSchemaSnippetsAndExample(t *testing.T) {
	t.Parallel()

	snippets := []string{
		"[p1] Scope 1 emissions: 1,234.5 tCO2e",
		"[p4] Scope 3 | 12,000 | tCO2e",
	}
	got := User(snippets)

	assert.Contains(t, got, validate.MetricsSchema)
	for _, s := range snippets {
		assert.Contains(t, got, s)
	}
	// The example must be flagged as non-authoritative so models do not
	// echo it back as data.
	assert.Contains(t, got, "illustrative ONLY")
	assert.Contains(t, got, `"value":1234.5`)
}

func TestUserIsPure(t *testing.T) {
	t.Parallel()

	snippets := []string{"[p1] Scope 1: 500 tCO2e"}
	assert.Equal(t, User(snippets), User(snippets))
}

func TestRepairEmbedsErrorsAndLastJSON(t *testing.T) {
	t.Parallel()

	errs := []string{"metrics[0] unit must be one of: tCO2e, ktCO2e, MtCO2e"}
	last := `{"metrics":[{"unit":"kg"}]}`
	got := Repair(errs, last)

	assert.Contains(t, got, errs[0])
	assert.Contains(t, got, last)
	assert.Contains(t, got, "Correct ONLY the invalid fields")
}

func TestRepairTruncatesBeyondTen(t *testing.T) {
	t.Parallel()

	var errs []string
	for i := 0; i < 14; i++ {
		errs = append(errs, fmt.Sprintf("metrics[%d] value must be a number", i))
	}
	got := Repair(errs, "{}")

	assert.Contains(t, got, "metrics[9]")
	assert.NotContains(t, got, "metrics[10]")
	assert.Contains(t, got, "... and 4 more")
	// Ten listed errors plus the summary line, joined by ten newlines.
	assert.Equal(t, 10, strings.Count(got, "\n")-strings.Count(Repair(nil, "{}"), "\n"))
}

func TestRepairTenExactlyNotTruncated(t *testing.T) {
	t.Parallel()

	var errs []string
	for i := 0; i < 10; i++ {
		errs = append(errs, fmt.Sprintf("metrics[%d] value must be a number", i))
	}
	got := Repair(errs, "{}")
	assert.NotContains(t, got, "... and")
	assert.Contains(t, got, "metrics[9]")
}
