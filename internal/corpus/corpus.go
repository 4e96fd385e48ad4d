// Package corpus persists and loads the page-corpus artifact so
// extraction can run without re-parsing the source PDF.
package corpus

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdant-group/esg-cli/internal/model"
)

// artifactSchema is the JSON Schema every loaded corpus artifact must
// satisfy before decoding.
const artifactSchema = `{
  "type": "object",
  "required": ["doc", "pages"],
  "properties": {
    "doc": {"type": "string", "minLength": 1},
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["page"],
        "properties": {
          "page": {"type": "integer", "minimum": 1},
          "lines": {"type": "array", "items": {"type": "string"}},
          "tables": {
            "type": "array",
            "items": {
              "type": "array",
              "items": {"type": "array", "items": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`

var compileOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("corpus.json", strings.NewReader(artifactSchema)); err != nil {
		return nil, eris.Wrap(err, "corpus: add schema")
	}
	schema, err := compiler.Compile("corpus.json")
	if err != nil {
		return nil, eris.Wrap(err, "corpus: compile schema")
	}
	return schema, nil
})

// Save writes the corpus artifact as indented JSON.
func Save(c model.PageCorpus, path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return eris.Wrap(err, "corpus: marshal")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "corpus: write %s", path)
	}
	return nil
}

// Load reads a corpus artifact, validates it against the embedded
// schema and decodes it.
func Load(path string) (model.PageCorpus, error) {
	var c model.PageCorpus

	data, err := os.ReadFile(path)
	if err != nil {
		return c, eris.Wrapf(err, "corpus: read %s", path)
	}

	schema, err := compileOnce()
	if err != nil {
		return c, err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return c, eris.Wrapf(err, "corpus: parse %s", path)
	}
	if err := schema.Validate(raw); err != nil {
		return c, eris.Wrapf(err, "corpus: artifact %s does not match schema", path)
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return c, eris.Wrapf(err, "corpus: decode %s", path)
	}
	return c, nil
}
