package schema

import (
	"github.com/leofalp/jsonguard/internal/jsonschema"
)

// JSONSchema renders the schema as a JSON Schema document suitable for a
// provider's structured response format. Every field is listed as required in
// the document: providers that enforce it produce complete objects, while the
// recovery pipeline still tolerates their absence. Recoverable fields carry
// their default.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	return s.jsonSchema(true)
}

// StrictJSONSchema is JSONSchema without defaults, for strict structured
// output modes that reject the default keyword.
func (s *Schema) StrictJSONSchema() *jsonschema.Schema {
	return s.jsonSchema(false)
}

func (s *Schema) jsonSchema(withDefaults bool) *jsonschema.Schema {
	doc := &jsonschema.Schema{
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(s.fields)),
		Required:             s.Names(),
		AdditionalProperties: false,
	}

	for _, f := range s.fields {
		var prop *jsonschema.Schema
		switch f.Kind {
		case KindString:
			prop = &jsonschema.Schema{Type: "string"}
		case KindStringList:
			prop = &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
		}
		prop.Description = f.Description
		if withDefaults && !f.Required {
			prop.Default = s.DefaultValue(f)
		}
		doc.Properties[f.Name] = prop
	}

	return doc
}
