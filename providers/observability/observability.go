package observability

import (
	"context"
)

// --- METRICS ---

// Metrics provides metrics collection capabilities
type Metrics interface {
	// Counter creates or retrieves a counter metric
	Counter(name string) Counter
	// Histogram creates or retrieves a histogram metric
	Histogram(name string) Histogram
}

// Counter is a monotonically increasing metric
type Counter interface {
	Add(ctx context.Context, value int64, attrs ...Attribute)
}

// Histogram records distribution of values
type Histogram interface {
	Record(ctx context.Context, value float64, attrs ...Attribute)
}

// Noop returns Metrics that discard every observation.
func Noop() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) Counter(string) Counter     { return noopInstrument{} }
func (noopMetrics) Histogram(string) Histogram { return noopInstrument{} }

type noopInstrument struct{}

func (noopInstrument) Add(context.Context, int64, ...Attribute)      {}
func (noopInstrument) Record(context.Context, float64, ...Attribute) {}

// --- ATTRIBUTES (Key-Value pairs) ---

// Attribute represents a key-value pair for metadata
type Attribute struct {
	Key   string
	Value interface{}
}

// String creates a string attribute
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}
