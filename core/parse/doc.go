// Package parse turns raw provider text into a generic structured value.
//
// Parsing is deliberately strict: the entire text must be exactly one
// well-formed JSON value. Markdown fences, narrative prose around the
// payload, comments and trailing commas are all rejected. The point of the
// pipeline is to expose provider unreliability, not to mask it, so a response
// that needs repairing is reported as a [ParseFailure] and left to the retry
// loop.
//
// [ParseFailure.Repairable] records whether an automatic JSON repair pass
// would have produced a valid document. It is diagnostic only and never
// changes the outcome.
package parse
