package schema

import (
	"fmt"
	"os"
	"sync"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"
)

// fileDocumentSchema is the JSON Schema every schema file must satisfy before
// it is turned into a Schema.
const fileDocumentSchema = `{
  "type": "object",
  "required": ["fields"],
  "additionalProperties": false,
  "properties": {
    "fields": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "kind"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "kind": {"enum": ["string", "string-list"]},
          "required": {"type": "boolean"},
          "description": {"type": "string"},
          "default": {"type": ["string", "array"], "items": {"type": "string"}}
        }
      }
    }
  }
}`

var (
	fileSchemaOnce     sync.Once
	fileSchemaCompiled *jsonschema.Schema
	fileSchemaErr      error
)

func compiledFileSchema() (*jsonschema.Schema, error) {
	fileSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		fileSchemaCompiled, fileSchemaErr = compiler.Compile([]byte(fileDocumentSchema))
	})
	return fileSchemaCompiled, fileSchemaErr
}

type fileDocument struct {
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
	Default     any    `yaml:"default"`
}

// Load reads a YAML schema file from path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Schema from YAML. The document is checked against the schema
// file format first, so structural mistakes are reported before field
// invariants are.
func Parse(data []byte) (*Schema, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	compiled, err := compiledFileSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema file format: %w", err)
	}

	result := compiled.Validate(raw)
	if !result.Valid {
		return nil, &ConfigError{Reason: fmt.Sprintf("schema file does not match the expected format: %v", result.Errors)}
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema YAML: %w", err)
	}

	fields := make([]FieldSpec, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		fields = append(fields, FieldSpec{
			Name:        f.Name,
			Kind:        Kind(f.Kind),
			Required:    f.Required,
			Description: f.Description,
			Default:     f.Default,
		})
	}

	return New(fields...)
}
