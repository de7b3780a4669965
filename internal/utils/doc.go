// Package utils provides shared low-level helpers used throughout the
// jsonguard internals: a synchronous JSON-over-HTTP POST helper for provider
// adapters and string truncation for log output.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips and
// [TruncateString] for bounding untrusted text before it reaches a log line.
package utils
