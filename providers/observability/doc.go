// Package observability defines the metrics abstraction used by the guard and
// the semantic conventions for its metric names and attribute keys.
//
// The guard only depends on [Metrics]. Backends live in sub-packages: promobs
// exports Prometheus collectors, and slog writes every observation to a
// structured logger at debug level.
package observability
