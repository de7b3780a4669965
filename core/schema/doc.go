// Package schema describes the contract a provider response must satisfy and
// the trusted record produced once a response has been accepted.
//
// A [Schema] is an ordered set of [FieldSpec] values. Each field is either
// required, in which case it must be present and correctly typed for a
// response to be accepted, or recoverable, in which case it carries a default
// that the recovery pipeline substitutes when the field is missing or
// malformed.
//
// A [Record] is the only value the rest of the system is permitted to trust:
// it holds exactly the schema's field names, each with a value of the declared
// [Kind].
//
// Schemas can be built in code with [New], [Required] and [Recoverable], or
// loaded from YAML with [Load]:
//
//	fields:
//	  - name: language
//	    kind: string
//	    required: true
//	  - name: benefits
//	    kind: string-list
//	    default: []
package schema
