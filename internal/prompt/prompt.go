// Package prompt renders the system, user and repair prompts for the
// extraction loop. Pure functions, no I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/verdant-group/esg-cli/internal/validate"
)

// maxRepairErrors bounds how many validation errors a repair prompt
// carries; anything beyond is summarized.
const maxRepairErrors = 10

const systemText = "You are an expert ESG analyst extracting Scope 1, Scope 2, and Scope 3 " +
	"emissions data from report snippets. Return ONLY valid JSON matching the schema. " +
	"No markdown, no explanations. Omit any metric you are not certain about rather than guessing."

const userTemplate = `Output JSON schema:
%s

Snippets (each prefixed with its source page tag):
%s

Instructions:
1. Extract every emissions metric the snippets support.
2. Convert values to plain numbers (strip thousands separators).
3. Take the "page" field from the snippet's page tag.
4. Return JSON only, matching the schema above.

Example of the output shape. The example is illustrative ONLY and is not data from this document:
%s`

const repairTemplate = `Your previous JSON failed validation.

Validation errors:
%s

Previous JSON:
%s

Correct ONLY the invalid fields and return the complete corrected JSON object. Return JSON only, no explanations.`

const examplePayload = `{"metrics":[{"name":"Scope 1","value":1234.5,"unit":"tCO2e","year":2023,"page":10,"snippet":"Scope 1 emissions: 1,234.5 tCO2e"}]}`

// System returns the fixed system prompt.
func System() string {
	return systemText
}

// User renders the first user turn: schema, snippet list and the marked
// example payload.
func User(snippets []string) string {
	return fmt.Sprintf(userTemplate, validate.MetricsSchema, strings.Join(snippets, "\n"), examplePayload)
}

// Repair renders a repair turn from validation errors and the previous
// raw JSON. At most maxRepairErrors errors are listed; the rest
// collapse into a count.
func Repair(errs []string, lastJSON string) string {
	shown := errs
	if len(errs) > maxRepairErrors {
		shown = make([]string, 0, maxRepairErrors+1)
		shown = append(shown, errs[:maxRepairErrors]...)
		shown = append(shown, fmt.Sprintf("... and %d more", len(errs)-maxRepairErrors))
	}
	return fmt.Sprintf(repairTemplate, strings.Join(shown, "\n"), lastJSON)
}
