// Package jsonschema holds the JSON Schema document type sent to completion
// providers as a structured response format.
//
// Only the subset of the standard needed to describe flat objects of strings
// and string lists is modelled. Documents are produced by core/schema and
// serialized with [Schema.JsonString].
package jsonschema
